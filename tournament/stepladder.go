package tournament

import (
	"github.com/justinjudd/pairings/models"
)

// Stepladder generates a ladder over a field ordered by rank, best first. The two lowest ranked competitors open, and
// every later round sends the previous winner up against the next competitor in the ladder
func Stepladder(ids []string, startingRound int) ([]models.Match, error) {
	if err := validate(ids, 2); err != nil {
		return nil, err
	}
	n := len(ids)
	g := newGrid()
	last := startingRound + n - 2
	for round := startingRound; round <= last; round++ {
		g.add(round, 1, models.BracketMain)
	}
	for round := startingRound; round < last; round++ {
		g.route(models.Path{Round: round, Match: 1}, models.Path{Round: round + 1, Match: 1}, false)
	}

	for i, m := range g.matches {
		m.A = ids[n-i-2]
		if i == 0 {
			m.B = ids[n-1]
		}
	}
	return g.list(), nil
}
