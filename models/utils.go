package models

import "sort"

// IsBye reports whether exactly one slot of m is filled. It only looks at the match itself, so a match waiting for
// an opponent routed from an earlier match also counts. Use Bracket.IsBye to rule those out
func IsBye(m Match) bool {
	return (m.A == "") != (m.B == "")
}

// Bracket is an ordered collection of rounds, each holding its matches in match number order
type Bracket struct {
	Rounds [][]Match
}

// NewBracket groups matches by round. Rounds are ordered by round number, matches by match number
func NewBracket(matches []Match) Bracket {
	byRound := map[int][]Match{}
	var rounds []int
	for _, m := range matches {
		if _, ok := byRound[m.Round]; !ok {
			rounds = append(rounds, m.Round)
		}
		byRound[m.Round] = append(byRound[m.Round], m)
	}
	sort.Ints(rounds)

	b := Bracket{Rounds: make([][]Match, 0, len(rounds))}
	for _, r := range rounds {
		round := byRound[r]
		sort.SliceStable(round, func(i, j int) bool {
			return round[i].Match < round[j].Match
		})
		b.Rounds = append(b.Rounds, round)
	}
	return b
}

// Find returns the match at the given round and match number
func (b Bracket) Find(round, match int) (Match, bool) {
	for _, r := range b.Rounds {
		if len(r) == 0 || r[0].Round != round {
			continue
		}
		for _, m := range r {
			if m.Match == match {
				return m, true
			}
		}
	}
	return Match{}, false
}

// IsBye reports whether m has exactly one competitor and no win or loss path in the bracket leads into it
func (b Bracket) IsBye(m Match) bool {
	if !IsBye(m) {
		return false
	}
	target := Path{Round: m.Round, Match: m.Match}
	for _, r := range b.Rounds {
		for _, src := range r {
			if (src.Win != nil && *src.Win == target) || (src.Loss != nil && *src.Loss == target) {
				return false
			}
		}
	}
	return true
}

// Finals returns every match without a win path, apart from consolation matches
func (b Bracket) Finals() []Match {
	var finals []Match
	for _, r := range b.Rounds {
		for _, m := range r {
			if m.Win == nil && m.Bracket != BracketConsolation {
				finals = append(finals, m)
			}
		}
	}
	return finals
}

// Matches flattens the bracket back into generation order
func (b Bracket) Matches() []Match {
	var out []Match
	for _, r := range b.Rounds {
		out = append(out, r...)
	}
	return out
}
