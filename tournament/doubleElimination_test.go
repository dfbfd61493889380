package tournament

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justinjudd/pairings/models"
)

func TestDoubleEliminationFour(t *testing.T) {
	matches, err := DoubleElimination(field(4), 1, true, nil)
	require.NoError(t, err)
	require.Len(t, matches, 6)
	b := models.NewBracket(matches)

	path := func(round, match int) *models.Path {
		return &models.Path{Round: round, Match: match}
	}
	for _, m := range b.Rounds[0] {
		assert.Equal(t, models.BracketWinners, m.Bracket)
		assert.Equal(t, path(2, 1), m.Win)
		assert.Equal(t, path(4, 1), m.Loss)
	}
	winnersFinal, _ := b.Find(2, 1)
	assert.Equal(t, path(3, 1), winnersFinal.Win)
	assert.Equal(t, path(5, 1), winnersFinal.Loss)

	grandFinal, _ := b.Find(3, 1)
	assert.Equal(t, models.BracketFinals, grandFinal.Bracket)
	assert.Nil(t, grandFinal.Win)

	first, _ := b.Find(4, 1)
	assert.Equal(t, models.BracketLosers, first.Bracket)
	assert.Equal(t, path(5, 1), first.Win)
	last, _ := b.Find(5, 1)
	assert.Equal(t, path(3, 1), last.Win)
	assert.Nil(t, last.Loss)
}

func TestDoubleEliminationRouting(t *testing.T) {
	path := func(round, match int) *models.Path {
		return &models.Path{Round: round, Match: match}
	}
	winners := func(round, match int, a, b string, win, loss *models.Path) models.Match {
		return models.Match{Round: round, Match: match, A: a, B: b, Win: win, Loss: loss, Bracket: models.BracketWinners}
	}
	losers := func(round, match int, win *models.Path) models.Match {
		return models.Match{Round: round, Match: match, Win: win, Bracket: models.BracketLosers}
	}
	finals := func(round int) models.Match {
		return models.Match{Round: round, Match: 1, Bracket: models.BracketFinals}
	}

	tests := []struct {
		n    int
		want []models.Match
	}{
		{5, []models.Match{
			winners(1, 1, "s5", "s4", path(2, 1), path(5, 1)),
			winners(2, 1, "s1", "", path(3, 1), path(6, 1)),
			winners(2, 2, "s2", "s3", path(3, 1), path(5, 1)),
			winners(3, 1, "", "", path(4, 1), path(7, 1)),
			finals(4),
			losers(5, 1, path(6, 1)),
			losers(6, 1, path(7, 1)),
			losers(7, 1, path(4, 1)),
		}},
		{6, []models.Match{
			winners(1, 1, "s5", "s4", path(2, 1), path(5, 1)),
			winners(1, 2, "s6", "s3", path(2, 2), path(5, 2)),
			winners(2, 1, "s1", "", path(3, 1), path(5, 2)),
			winners(2, 2, "s2", "", path(3, 1), path(5, 1)),
			winners(3, 1, "", "", path(4, 1), path(7, 1)),
			finals(4),
			losers(5, 1, path(6, 1)),
			losers(5, 2, path(6, 1)),
			losers(6, 1, path(7, 1)),
			losers(7, 1, path(4, 1)),
		}},
		// Both s6 and s7 advance into round 2 match 2, so their losers meet first
		{7, []models.Match{
			winners(1, 1, "s5", "s4", path(2, 1), path(6, 2)),
			winners(1, 2, "s6", "s3", path(2, 2), path(5, 1)),
			winners(1, 3, "s7", "s2", path(2, 2), path(5, 1)),
			winners(2, 1, "s1", "", path(3, 1), path(6, 1)),
			winners(2, 2, "", "", path(3, 1), path(6, 2)),
			winners(3, 1, "", "", path(4, 1), path(8, 1)),
			finals(4),
			losers(5, 1, path(6, 1)),
			losers(6, 1, path(7, 1)),
			losers(6, 2, path(7, 1)),
			losers(7, 1, path(8, 1)),
			losers(8, 1, path(4, 1)),
		}},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d competitors", tc.n), func(t *testing.T) {
			matches, err := DoubleElimination(field(tc.n), 1, true, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, matches)
		})
	}
}

func TestDoubleEliminationShape(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for n := 4; n <= 40; n++ {
		t.Run(fmt.Sprintf("%d competitors", n), func(t *testing.T) {
			matches, err := DoubleElimination(field(n), 1, false, rng)
			require.NoError(t, err)
			require.Len(t, matches, 2*n-2)
			requireSlotsAccounted(t, matches)

			finals := models.NewBracket(matches).Finals()
			require.Len(t, finals, 1)
			assert.Equal(t, models.BracketFinals, finals[0].Bracket)

			winners, losers := 0, 0
			for _, m := range matches {
				switch m.Bracket {
				case models.BracketWinners:
					winners++
					assert.NotNil(t, m.Loss, "every winners' match drops its loser")
				case models.BracketLosers:
					losers++
					assert.Nil(t, m.Loss)
					assert.NotNil(t, m.Win)
				}
			}
			assert.Equal(t, n-1, winners)
			assert.Equal(t, n-2, losers)

			for trial := 0; trial < 5; trial++ {
				losses, champion := playOut(t, matches, rng, 2)
				require.NotEmpty(t, champion)
				assert.LessOrEqual(t, losses[champion], 1)
				out := 0
				for id, l := range losses {
					if id != champion && l == 2 {
						out++
					}
				}
				assert.GreaterOrEqual(t, out, n-2, "all but the finalists are knocked out twice")
			}
		})
	}
}

func TestDoubleEliminationStartingRound(t *testing.T) {
	matches, err := DoubleElimination(field(6), 10, true, nil)
	require.NoError(t, err)
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Round, 10)
	}
	requireSlotsAccounted(t, matches)
}

func TestDoubleEliminationErrors(t *testing.T) {
	_, err := DoubleElimination(field(3), 1, true, nil)
	assert.ErrorIs(t, err, ErrTooFewCompetitors)

	_, err = DoubleElimination([]string{"a", "b", "c", ""}, 1, true, nil)
	assert.ErrorIs(t, err, ErrDuplicateCompetitor)
}

func TestSeparate(t *testing.T) {
	p := func(round, match int) models.Path {
		return models.Path{Round: round, Match: match}
	}
	f := func(paths ...models.Path) feed {
		seen := trail{}
		for _, path := range paths {
			seen[path] = true
		}
		return feed{from: paths[0], seen: seen}
	}
	pairs := [][2]feed{
		{f(p(1, 1)), f(p(1, 1), p(2, 1))},
		{f(p(1, 2)), f(p(1, 3))},
	}
	require.True(t, clash(pairs[0][0], pairs[0][1]))
	separate(pairs)
	assert.False(t, clash(pairs[0][0], pairs[0][1]))
	assert.False(t, clash(pairs[1][0], pairs[1][1]))
}
