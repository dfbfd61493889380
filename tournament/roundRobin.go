package tournament

import (
	"math/rand"

	"github.com/justinjudd/pairings/models"
)

// RoundRobin generates a full schedule with the Berger circle method. An odd field gets a bye entry, so every round has
// exactly one bye match with the resting competitor in slot A. With double set a second schedule follows with slots
// reversed. Unless seeded is set the field is shuffled with rng first
func RoundRobin(ids []string, startingRound int, double, seeded bool, rng *rand.Rand) ([]models.Match, error) {
	if err := validate(ids, 2); err != nil {
		return nil, err
	}
	field := order(ids, seeded, rng)
	if len(field)%2 == 1 {
		field = append(field, "")
	}
	n := len(field)
	rounds := n - 1

	g := newGrid()
	legs := 1
	if double {
		legs = 2
	}
	for leg := 0; leg < legs; leg++ {
		for t := 0; t < rounds; t++ {
			g.addRound(startingRound+leg*rounds+t, n/2, models.BracketMain)
		}
	}

	circle := make([]string, n)
	for t := 0; t < rounds; t++ {
		circle[0] = field[0]
		for i := 1; i < n; i++ {
			circle[i] = field[1+(i-1+t)%rounds]
		}
		for i := 0; i < n/2; i++ {
			a, b := circle[i], circle[n-1-i]
			if i == 0 && t%2 == 1 {
				a, b = b, a
			}
			for leg := 0; leg < legs; leg++ {
				m := g.at(models.Path{Round: startingRound + leg*rounds + t, Match: i + 1})
				if leg == 1 {
					m.A, m.B = b, a
				} else {
					m.A, m.B = a, b
				}
				if m.A == "" {
					m.A, m.B = m.B, m.A
				}
			}
		}
	}
	return g.list(), nil
}
