package tournament

import (
	"errors"
	"fmt"
	"math/bits"
	"math/rand"
	"time"

	"github.com/justinjudd/pairings/models"
)

var (
	// ErrTooFewCompetitors indicates the field is smaller than the format allows
	ErrTooFewCompetitors = errors.New("tournament: not enough competitors")
	// ErrDuplicateCompetitor indicates an empty or repeated competitor id
	ErrDuplicateCompetitor = errors.New("tournament: competitor ids must be unique and non-empty")
	// ErrUnknownFormat indicates a format without a generator
	ErrUnknownFormat = errors.New("tournament: unknown format")
)

// BracketOrder returns the seed placement for a full bracket of 2^k competitors. Consecutive entries play each other
// in the first full round, and the highest remaining seed always meets the lowest remaining seed
func BracketOrder(k int) []int {
	switch {
	case k <= 0:
		return []int{1}
	case k == 1:
		return []int{1, 2}
	}
	order := []int{1, 4, 2, 3}
	for i := 3; i <= k; i++ {
		size := 1 << uint(i)
		next := make([]int, 0, size)
		for _, s := range order {
			next = append(next, s, size+1-s)
		}
		order = next
	}
	return order
}

// fillPattern returns the order match numbers 1..count are handed to a losers round. The four rotations keep losers
// from consecutive intakes away from the neighbours they just played
func fillPattern(count, fill int) []int {
	a := make([]int, count)
	for i := range a {
		a[i] = i + 1
	}
	x := append([]int(nil), a[:count/2]...)
	y := append([]int(nil), a[count/2:]...)
	switch fill % 4 {
	case 1:
		reverse(a)
	case 2:
		reverse(x)
		reverse(y)
		a = append(x, y...)
	case 3:
		a = append(y, x...)
	}
	return a
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// floorLog2 returns ⌊log2 n⌋ for n >= 1
func floorLog2(n int) int {
	return bits.Len(uint(n)) - 1
}

func validate(ids []string, min int) error {
	if len(ids) < min {
		return fmt.Errorf("%d competitors, need at least %d: %w", len(ids), min, ErrTooFewCompetitors)
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			return fmt.Errorf("competitor %q: %w", id, ErrDuplicateCompetitor)
		}
		seen[id] = true
	}
	return nil
}

// order copies the field, shuffling it when it isn't already seeded
func order(ids []string, seeded bool, rng *rand.Rand) []string {
	out := append([]string(nil), ids...)
	if seeded {
		return out
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// grid holds matches keyed by round and match number while a bracket is built
type grid struct {
	matches []*models.Match
	index   map[models.Path]*models.Match
}

func newGrid() *grid {
	return &grid{index: map[models.Path]*models.Match{}}
}

// addRound allocates count empty matches in round
func (g *grid) addRound(round, count int, bracket string) {
	for i := 1; i <= count; i++ {
		g.add(round, i, bracket)
	}
}

func (g *grid) add(round, number int, bracket string) *models.Match {
	m := &models.Match{Round: round, Match: number, Bracket: bracket}
	g.matches = append(g.matches, m)
	g.index[models.Path{Round: round, Match: number}] = m
	return m
}

func (g *grid) round(round int) []*models.Match {
	var out []*models.Match
	for _, m := range g.matches {
		if m.Round == round {
			out = append(out, m)
		}
	}
	return out
}

// at returns the match a path points to. A missing match is a construction defect
func (g *grid) at(p models.Path) *models.Match {
	m, ok := g.index[p]
	if !ok {
		panic(fmt.Sprintf("tournament: no match at round %d match %d", p.Round, p.Match))
	}
	return m
}

// route sends the winner (or loser) of from into to. Both matches must already exist
func (g *grid) route(from, to models.Path, loss bool) {
	src := g.at(from)
	g.at(to)
	p := to
	if loss {
		src.Loss = &p
	} else {
		src.Win = &p
	}
}

func (g *grid) list() []models.Match {
	out := make([]models.Match, len(g.matches))
	for i, m := range g.matches {
		out[i] = *m
	}
	return out
}
