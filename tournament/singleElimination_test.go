package tournament

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justinjudd/pairings/models"
)

func TestSingleEliminationFour(t *testing.T) {
	matches, err := SingleElimination(field(4), 1, false, true, nil)
	require.NoError(t, err)

	final := &models.Path{Round: 2, Match: 1}
	assert.Equal(t, []models.Match{
		{Round: 1, Match: 1, A: "s1", B: "s4", Win: final, Bracket: models.BracketMain},
		{Round: 1, Match: 2, A: "s2", B: "s3", Win: final, Bracket: models.BracketMain},
		{Round: 2, Match: 1, Bracket: models.BracketMain},
	}, matches)
}

func TestSingleEliminationFive(t *testing.T) {
	matches, err := SingleElimination(field(5), 1, false, true, nil)
	require.NoError(t, err)
	require.Len(t, matches, 4)

	b := models.NewBracket(matches)
	prelim, ok := b.Find(1, 1)
	require.True(t, ok)
	assert.Equal(t, "s5", prelim.A)
	assert.Equal(t, "s4", prelim.B)
	assert.Equal(t, &models.Path{Round: 2, Match: 1}, prelim.Win)

	top, _ := b.Find(2, 1)
	assert.Equal(t, "s1", top.A)
	assert.Empty(t, top.B, "reserved for the preliminary winner")
	other, _ := b.Find(2, 2)
	assert.Equal(t, "s2", other.A)
	assert.Equal(t, "s3", other.B)

	final, _ := b.Find(3, 1)
	assert.Nil(t, final.Win)
}

func TestSingleEliminationSix(t *testing.T) {
	matches, err := SingleElimination(field(6), 3, false, true, nil)
	require.NoError(t, err)
	b := models.NewBracket(matches)
	require.Len(t, b.Rounds, 3)
	assert.Equal(t, 3, b.Rounds[0][0].Round, "numbering starts at the starting round")

	first, _ := b.Find(3, 1)
	second, _ := b.Find(3, 2)
	assert.Equal(t, [2]string{"s5", "s4"}, [2]string{first.A, first.B})
	assert.Equal(t, [2]string{"s6", "s3"}, [2]string{second.A, second.B})
	assert.Equal(t, models.Path{Round: 4, Match: 1}, *first.Win)
	assert.Equal(t, models.Path{Round: 4, Match: 2}, *second.Win)

	for _, m := range b.Rounds[1] {
		assert.NotEmpty(t, m.A, "top seeds wait in slot A")
		assert.Empty(t, m.B)
	}
}

func TestSingleEliminationShape(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for n := 2; n <= 40; n++ {
		t.Run(fmt.Sprintf("%d competitors", n), func(t *testing.T) {
			matches, err := SingleElimination(field(n), 1, false, false, rng)
			require.NoError(t, err)
			require.Len(t, matches, n-1)
			requireSlotsAccounted(t, matches)

			finals := models.NewBracket(matches).Finals()
			require.Len(t, finals, 1)
			for _, m := range matches {
				assert.Nil(t, m.Loss)
				assert.Equal(t, models.BracketMain, m.Bracket)
			}

			losses, champion := playOut(t, matches, rng, 1)
			assert.NotEmpty(t, champion)
			assert.Len(t, losses, n-1, "everyone but the champion loses once")
			assert.Zero(t, losses[champion])
		})
	}
}

func TestSingleEliminationConsolation(t *testing.T) {
	matches, err := SingleElimination(field(8), 1, true, true, nil)
	require.NoError(t, err)
	require.Len(t, matches, 8)
	requireSlotsAccounted(t, matches)

	b := models.NewBracket(matches)
	third, ok := b.Find(3, 2)
	require.True(t, ok)
	assert.Equal(t, models.BracketConsolation, third.Bracket)
	assert.Nil(t, third.Win)
	for _, semi := range b.Rounds[1] {
		assert.Equal(t, &models.Path{Round: 3, Match: 2}, semi.Loss)
	}
	require.Len(t, b.Finals(), 1)
	assert.Equal(t, models.Path{Round: 3, Match: 1}, pathOf(b.Finals()[0]))

	losses, champion := playOut(t, matches, rand.New(rand.NewSource(2)), 2)
	assert.Zero(t, losses[champion])

	t.Run("no semifinals", func(t *testing.T) {
		for _, n := range []int{2, 3} {
			matches, err := SingleElimination(field(n), 1, true, true, nil)
			require.NoError(t, err)
			assert.Len(t, matches, n-1)
		}
	})
}

func TestSingleEliminationErrors(t *testing.T) {
	_, err := SingleElimination(field(1), 1, false, true, nil)
	assert.ErrorIs(t, err, ErrTooFewCompetitors)

	_, err = SingleElimination([]string{"a", "b", "a"}, 1, false, true, nil)
	assert.ErrorIs(t, err, ErrDuplicateCompetitor)
}
