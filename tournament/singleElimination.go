package tournament

import (
	"math/rand"

	"github.com/justinjudd/pairings/models"
)

// elimination is the winners side of an elimination bracket: an optional preliminary round followed by full rounds
// that halve down to a single final
type elimination struct {
	*grid
	start     int // Round of the preliminary round, or of the first full round when there is none
	mainStart int // First full round
	last      int // Round of the final
	exponent  int // ⌊log2 n⌋
	remainder int // Competitors beyond the largest power of two, each of them plays a preliminary match
}

// layoutElimination allocates every round, wires win paths, then seeds the field into the first full round. Seeds
// that face a preliminary winner have their slot vacated, and the preliminary match is routed into it
func layoutElimination(field []string, startingRound int, bracket string) *elimination {
	n := len(field)
	e := &elimination{grid: newGrid(), start: startingRound, exponent: floorLog2(n)}
	size := 1 << uint(e.exponent)
	e.remainder = n - size

	round := startingRound
	if e.remainder > 0 {
		e.addRound(round, e.remainder, bracket)
		round++
	}
	e.mainStart = round
	for count := size / 2; count >= 1; count /= 2 {
		e.addRound(round, count, bracket)
		round++
	}
	e.last = round - 1

	for r := e.mainStart; r < e.last; r++ {
		for _, m := range e.round(r) {
			e.route(models.Path{Round: r, Match: m.Match}, models.Path{Round: r + 1, Match: (m.Match + 1) / 2}, false)
		}
	}

	seeds := BracketOrder(e.exponent)
	for i, m := range e.round(e.mainStart) {
		m.A = field[seeds[2*i]-1]
		m.B = field[seeds[2*i+1]-1]
	}

	if e.remainder > 0 {
		for i, m := range e.round(e.start) {
			m.A = field[size+i]
			m.B = field[size-i-1]
			target := e.vacate(e.mainStart, m.B)
			e.route(models.Path{Round: m.Round, Match: m.Match}, target, false)
		}
	}
	return e
}

// vacate clears the slot id holds in round and returns the match it was in
func (e *elimination) vacate(round int, id string) models.Path {
	for _, m := range e.round(round) {
		switch id {
		case m.A:
			m.A = ""
		case m.B:
			m.B = ""
		default:
			continue
		}
		return models.Path{Round: round, Match: m.Match}
	}
	panic("tournament: seed " + id + " missing from round")
}

// SingleElimination generates a knockout bracket starting at startingRound. When the field is not a power of two the
// lowest seeds play a preliminary round. Unless seeded is set the field is shuffled with rng first. A consolation
// match between the semifinal losers is added when requested and the field has semifinals
func SingleElimination(ids []string, startingRound int, consolation, seeded bool, rng *rand.Rand) ([]models.Match, error) {
	if err := validate(ids, 2); err != nil {
		return nil, err
	}
	e := layoutElimination(order(ids, seeded, rng), startingRound, models.BracketMain)

	if consolation && e.last > e.mainStart {
		third := e.add(e.last, len(e.round(e.last))+1, models.BracketConsolation)
		for _, m := range e.round(e.last - 1) {
			e.route(models.Path{Round: m.Round, Match: m.Match}, models.Path{Round: third.Round, Match: third.Match}, true)
		}
	}
	return e.list(), nil
}
