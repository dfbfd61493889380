package tournament

import (
	"math"
	"sort"

	"github.com/justinjudd/pairings/matching"
	"github.com/justinjudd/pairings/models"
)

// weightScale converts pairing weights to the integer weights the matching solver works with
const weightScale = 1000

// Swiss pairs a single round of a Swiss event as a maximum weight matching. Competitors who already met are only
// paired again once nobody they have not met is left for them. With rated set, rating proximity adds weight, and with colors set the
// colour history steers both the pairing and the slot order (slot A plays White). Unpaired competitors get a bye
func Swiss(competitors []models.Competitor, round int, rated, colors bool) ([]models.Match, error) {
	ids := make([]string, len(competitors))
	for i, c := range competitors {
		ids[i] = c.ID
	}
	if err := validate(ids, 2); err != nil {
		return nil, err
	}

	mates, err := pairSwiss(competitors, rated, colors)
	if err != nil {
		return nil, err
	}

	var matches []models.Match
	var byes []string
	used := make([]bool, len(competitors))
	for i, c := range competitors {
		if used[i] {
			continue
		}
		used[i] = true
		if i >= len(mates) || mates[i] == matching.Unmatched {
			byes = append(byes, c.ID)
			continue
		}
		j := mates[i]
		used[j] = true
		a, b := c, competitors[j]
		if colors && dueWhite(b, a) {
			a, b = b, a
		}
		matches = append(matches, models.Match{Round: round, Match: len(matches) + 1, A: a.ID, B: b.ID, Bracket: models.BracketMain})
	}
	for _, id := range byes {
		matches = append(matches, models.Match{Round: round, Match: len(matches) + 1, A: id, Bracket: models.BracketMain})
	}
	return matches, nil
}

// Pairing rules, loosened one step at a time
const (
	strict         = iota // No repeats, no two competitors on the same colour streak
	colorsRelaxed         // No repeats
	repeatsAllowed        // Everyone has already met everyone they could
)

// pairSwiss solves the strict rules first. When colours keep the matching from covering the field, pairs on a shared
// streak are allowed as long as they have not met. Repeats are only allowed when no pair at all is left otherwise
func pairSwiss(competitors []models.Competitor, rated, colors bool) ([]int, error) {
	levels := []int{strict}
	if colors {
		levels = append(levels, colorsRelaxed)
	}

	var best []int
	bestPairs := -1
	for _, level := range levels {
		edges := swissEdges(competitors, rated, colors, level)
		if len(edges) == 0 {
			continue
		}
		mates, err := matching.MaxWeightMatching(edges, true)
		if err != nil {
			return nil, err
		}
		if p := pairCount(mates); p > bestPairs {
			best, bestPairs = mates, p
		}
		if bestPairs == len(competitors)/2 {
			break
		}
	}
	if best != nil {
		return best, nil
	}
	return matching.MaxWeightMatching(swissEdges(competitors, rated, colors, repeatsAllowed), true)
}

func pairCount(mates []int) int {
	n := 0
	for v, w := range mates {
		if w > v {
			n++
		}
	}
	return n
}

func swissEdges(competitors []models.Competitor, rated, colors bool, level int) []matching.Edge {
	groups := scoreGroups(competitors)
	group := make(map[float64]int, len(groups))
	for i, s := range groups {
		group[s] = i
	}
	sums := scoreSums(groups)
	sumRank := make(map[float64]int, len(sums))
	for i, s := range sums {
		sumRank[s] = i
	}

	var edges []matching.Edge
	for i, curr := range competitors {
		rest := competitors[i+1:]
		var proximity map[string]int
		if rated {
			proximity = ratingProximity(curr, rest)
		}
		for k, opp := range rest {
			j := i + 1 + k
			meetings := met(curr, opp) + met(opp, curr)
			if meetings > 0 && level < repeatsAllowed {
				continue
			}

			wt := 14 * math.Log10(float64(sumRank[curr.Score+opp.Score]+1))
			diff := math.Abs(float64(group[curr.Score] - group[opp.Score]))
			if diff < 2 {
				wt += 5 / (2 * math.Log10(diff+2))
			} else {
				wt += 1 / math.Log10(diff+2)
			}
			if diff == 1 && !curr.PairedUpDown && !opp.PairedUpDown {
				wt += 1.1
			}
			if rated {
				wt += (math.Log2(float64(len(rest))) - math.Log2(float64(proximity[opp.ID]+1))) / 3
			}
			if colors {
				bonus, ok := colorWeight(curr.Colors, opp.Colors)
				if !ok && level == strict {
					continue
				}
				wt += bonus
			}
			if curr.ReceivedBye || opp.ReceivedBye {
				wt *= 1.5
			}
			// The fewer times two competitors have met, the better the repeat
			wt /= float64(1 + meetings)
			edges = append(edges, matching.Edge{I: i, J: j, Weight: int64(math.Round(wt * weightScale))})
		}
	}
	return edges
}

// scoreGroups returns the distinct scores in ascending order
func scoreGroups(competitors []models.Competitor) []float64 {
	seen := map[float64]bool{}
	var groups []float64
	for _, c := range competitors {
		if !seen[c.Score] {
			seen[c.Score] = true
			groups = append(groups, c.Score)
		}
	}
	sort.Float64s(groups)
	return groups
}

// scoreSums returns every distinct combined score two competitors can have, ascending
func scoreSums(groups []float64) []float64 {
	seen := map[float64]bool{}
	var sums []float64
	for i := range groups {
		for j := i; j < len(groups); j++ {
			s := groups[i] + groups[j]
			if !seen[s] {
				seen[s] = true
				sums = append(sums, s)
			}
		}
	}
	sort.Float64s(sums)
	return sums
}

// ratingProximity ranks the opponents by how close their rating is to c's, closest first
func ratingProximity(c models.Competitor, opponents []models.Competitor) map[string]int {
	sorted := append([]models.Competitor(nil), opponents...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(c.Rating-sorted[i].Rating) < math.Abs(c.Rating-sorted[j].Rating)
	})
	rank := make(map[string]int, len(sorted))
	for i, o := range sorted {
		rank[o.ID] = i
	}
	return rank
}

// met counts the times b appears in a's previous opponents
func met(a, b models.Competitor) int {
	n := 0
	for _, id := range a.Avoid {
		if id == b.ID {
			n++
		}
	}
	return n
}

// balance is the number of Whites minus the number of Blacks played
func balance(colors []models.Color) int {
	sum := 0
	for _, c := range colors {
		sum += int(c)
	}
	return sum
}

// streak reports whether the last two colours were both c
func streak(colors []models.Color, c models.Color) bool {
	n := len(colors)
	return n >= 2 && colors[n-1] == c && colors[n-2] == c
}

// colorWeight scores how well two colour histories fit together. Two competitors on the same two colour streak cannot
// be paired, since one of them would have to extend it
func colorWeight(a, b []models.Color) (float64, bool) {
	aScore, bScore := balance(a), balance(b)
	switch {
	case streak(a, models.White):
		switch {
		case streak(b, models.White):
			return 0, false
		case streak(b, models.Black):
			return 7, true
		}
		return 2 / math.Log(4+math.Max(0, float64(bScore))), true
	case streak(a, models.Black):
		switch {
		case streak(b, models.Black):
			return 0, false
		case streak(b, models.White):
			return 8, true
		}
		return 2 / math.Log(4+math.Max(0, -float64(bScore))), true
	case streak(b, models.White), streak(b, models.Black):
		return colorWeight(b, a)
	}
	d := math.Min(math.Abs(float64(aScore-bScore)), 8)
	return 5 / (4 * math.Log10(10-d)), true
}

// dueWhite reports whether a should take White (slot A) ahead of b
func dueWhite(a, b models.Competitor) bool {
	aScore, bScore := balance(a.Colors), balance(b.Colors)
	if aScore != bScore {
		return aScore < bScore
	}
	return streak(b.Colors, models.White) || streak(a.Colors, models.Black)
}
