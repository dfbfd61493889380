package tournament

import (
	"math/rand"

	"github.com/justinjudd/pairings/models"
)

// trail is the set of winners' bracket matches a competitor may have played in on the way to a slot
type trail map[models.Path]bool

func (t trail) with(o trail) trail {
	out := make(trail, len(t)+len(o))
	for p := range t {
		out[p] = true
	}
	for p := range o {
		out[p] = true
	}
	return out
}

// feed is a competitor arriving in a losers' round: the loser of a winners' match or the winner of a losers' match
type feed struct {
	from models.Path
	loss bool
	seen trail
}

// clash reports whether the occupants of two feeds could already have met in the winners' bracket
func clash(a, b feed) bool {
	for p := range a.seen {
		if b.seen[p] {
			return true
		}
	}
	return false
}

// losersBracket builds the losers' side round by round. Rounds are composed from feeds first and routed once the whole
// bracket is laid out
type losersBracket struct {
	*elimination
	history map[models.Path]trail
	next    int // Number of the next losers' round
	fill    int // Intakes so far, selects the fill pattern
	pending []pairing
}

type pairing struct {
	to   models.Path
	from feed
}

// DoubleElimination generates a winners' bracket, a losers' bracket and a grand final. At least 4 competitors are
// required. Unless seeded is set the field is shuffled with rng first
func DoubleElimination(ids []string, startingRound int, seeded bool, rng *rand.Rand) ([]models.Match, error) {
	if err := validate(ids, 4); err != nil {
		return nil, err
	}
	w := layoutElimination(order(ids, seeded, rng), startingRound, models.BracketWinners)

	grandFinal := models.Path{Round: w.last + 1, Match: 1}
	w.add(grandFinal.Round, grandFinal.Match, models.BracketFinals)
	w.route(models.Path{Round: w.last, Match: 1}, grandFinal, false)

	l := &losersBracket{elimination: w, history: w.trails(), next: grandFinal.Round + 1}
	champion := l.build()

	for _, p := range l.pending {
		w.route(p.from.from, p.to, p.from.loss)
	}
	w.route(champion.from, grandFinal, false)

	return w.list(), nil
}

// trails computes, for every winners' match, the matches its participants may have played
func (e *elimination) trails() map[models.Path]trail {
	history := map[models.Path]trail{}
	for _, m := range e.matches {
		if m.Bracket != models.BracketWinners {
			continue
		}
		here := models.Path{Round: m.Round, Match: m.Match}
		history[here] = history[here].with(trail{here: true})
		if m.Win != nil && m.Round < e.last {
			history[*m.Win] = history[*m.Win].with(history[here])
		}
	}
	return history
}

// build lays out every losers' round and returns the feed of the losers' bracket champion
func (l *losersBracket) build() feed {
	size := 1 << uint(l.exponent)
	half := size / 2

	var survivors []feed
	switch {
	case l.remainder == 0:
		survivors = l.add(pairUp(l.intake(l.mainStart)), false)

	case l.remainder <= half:
		// One extra round: every preliminary loser meets a first round loser, preferring first round matches that
		// did not absorb a preliminary winner
		prelim := l.intake(l.start)
		first := l.intake(l.mainStart)
		absorbed := l.absorbed()
		var clean, fed []feed
		for _, f := range first {
			if absorbed[f.from] > 0 {
				fed = append(fed, f)
			} else {
				clean = append(clean, f)
			}
		}
		preferred := append(clean, fed...)
		chosen := preferred[:l.remainder]
		var direct []feed
		for _, f := range first {
			if !contains(chosen, f) {
				direct = append(direct, f)
			}
		}
		extra := l.add(zip(prelim, chosen), true)

		entrants := append(extra, direct...)
		quarter := len(entrants) / 2
		survivors = l.add(zip(entrants[:quarter], entrants[quarter:]), true)

	default:
		// Two extra rounds. Preliminary losers whose winners both landed in the same first round match play each
		// other, then every survivor and remaining preliminary loser meets a first round loser
		prelim := l.intake(l.start)
		byTarget := map[models.Path][]feed{}
		for _, f := range prelim {
			target := *l.at(f.from).Win
			byTarget[target] = append(byTarget[target], f)
		}
		var doubles [][2]feed
		var singles []feed
		for _, m := range l.round(l.mainStart) {
			group := byTarget[models.Path{Round: m.Round, Match: m.Match}]
			switch len(group) {
			case 2:
				doubles = append(doubles, [2]feed{group[0], group[1]})
			case 1:
				singles = append(singles, group[0])
			}
		}
		extra := l.add(doubles, false)
		first := l.intake(l.mainStart)
		second := l.add(zip(append(extra, singles...), first), true)
		survivors = l.add(pairUp(second), false)
	}

	for k := 2; k <= l.exponent; k++ {
		dropped := l.intake(l.mainStart + k - 1)
		survivors = l.add(zip(survivors, dropped), false)
		if k < l.exponent {
			survivors = l.add(pairUp(survivors), false)
		}
	}
	if len(survivors) != 1 {
		panic("tournament: losers' bracket did not converge on one match")
	}
	return survivors[0]
}

// intake returns the losers of a winners' round in the next fill pattern order
func (l *losersBracket) intake(round int) []feed {
	matches := l.round(round)
	pattern := fillPattern(len(matches), l.fill)
	l.fill++
	out := make([]feed, len(pattern))
	for i, number := range pattern {
		from := models.Path{Round: round, Match: number}
		out[i] = feed{from: from, loss: true, seen: l.history[from]}
	}
	return out
}

// absorbed counts, per first full round match, the preliminary winners routed into it
func (l *losersBracket) absorbed() map[models.Path]int {
	counts := map[models.Path]int{}
	for _, m := range l.round(l.start) {
		counts[*m.Win]++
	}
	return counts
}

// add allocates a losers' round for the given pairings and returns the feeds of its winners in match order. With
// untangle set, slot B entrants are swapped between matches to split up pairs that may already have met
func (l *losersBracket) add(pairs [][2]feed, untangle bool) []feed {
	if untangle {
		separate(pairs)
	}
	round := l.next
	l.next++
	l.addRound(round, len(pairs), models.BracketLosers)

	winners := make([]feed, len(pairs))
	for i, p := range pairs {
		to := models.Path{Round: round, Match: i + 1}
		l.pending = append(l.pending, pairing{to: to, from: p[0]}, pairing{to: to, from: p[1]})
		winners[i] = feed{from: to, seen: p[0].seen.with(p[1].seen)}
	}
	return winners
}

// separate greedily swaps slot B entrants to reduce the number of pairs that could be rematches
func separate(pairs [][2]feed) {
	cost := func(i int) int {
		if clash(pairs[i][0], pairs[i][1]) {
			return 1
		}
		return 0
	}
	for i := range pairs {
		if cost(i) == 0 {
			continue
		}
		for j := range pairs {
			if j == i {
				continue
			}
			before := cost(i) + cost(j)
			pairs[i][1], pairs[j][1] = pairs[j][1], pairs[i][1]
			if cost(i)+cost(j) < before {
				break
			}
			pairs[i][1], pairs[j][1] = pairs[j][1], pairs[i][1]
		}
	}
}

func pairUp(feeds []feed) [][2]feed {
	pairs := make([][2]feed, 0, len(feeds)/2)
	for i := 0; i+1 < len(feeds); i += 2 {
		pairs = append(pairs, [2]feed{feeds[i], feeds[i+1]})
	}
	return pairs
}

func zip(a, b []feed) [][2]feed {
	if len(a) != len(b) {
		panic("tournament: uneven losers' round")
	}
	pairs := make([][2]feed, len(a))
	for i := range a {
		pairs[i] = [2]feed{a[i], b[i]}
	}
	return pairs
}

func contains(feeds []feed, f feed) bool {
	for _, g := range feeds {
		if g.from == f.from && g.loss == f.loss {
			return true
		}
	}
	return false
}
