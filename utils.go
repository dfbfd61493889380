package pairings

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/justinjudd/pairings/models"
	"github.com/justinjudd/pairings/tournament"
)

// Options carries the format specific flags for Generate. Flags that do not apply to a format are ignored
type Options struct {
	StartingRound int        // First round number to generate, defaults to 1
	Consolation   bool       // Single elimination: add a match between the semifinal losers
	Seeded        bool       // Elimination and round robin: the field is already in seed order
	Rated         bool       // Swiss: use rating proximity
	Colors        bool       // Swiss: balance colours and orient slots
	Rand          *rand.Rand // Source used to shuffle unseeded fields
}

// NewRand returns a deterministic source for a non-zero seed, and a time seeded one otherwise
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Generate produces the matches for a format. Elimination, stepladder and round robin formats use the competitors in
// the order given, Swiss uses their scores and pairing history
func Generate(format models.Format, competitors []models.Competitor, opts Options) ([]models.Match, error) {
	round := opts.StartingRound
	if round < 1 {
		round = 1
	}
	ids := make([]string, len(competitors))
	for i, c := range competitors {
		ids[i] = c.ID
	}

	var matches []models.Match
	var err error
	switch format {
	case models.Format_SINGLE_ELIMINATION:
		matches, err = tournament.SingleElimination(ids, round, opts.Consolation, opts.Seeded, opts.Rand)
	case models.Format_DOUBLE_ELIMINATION:
		matches, err = tournament.DoubleElimination(ids, round, opts.Seeded, opts.Rand)
	case models.Format_STEPLADDER:
		matches, err = tournament.Stepladder(ids, round)
	case models.Format_ROUND_ROBIN:
		matches, err = tournament.RoundRobin(ids, round, false, opts.Seeded, opts.Rand)
	case models.Format_DOUBLE_ROUND_ROBIN:
		matches, err = tournament.RoundRobin(ids, round, true, opts.Seeded, opts.Rand)
	case models.Format_SWISS:
		matches, err = tournament.Swiss(competitors, round, opts.Rated, opts.Colors)
	default:
		return nil, fmt.Errorf("format %d: %w", format, tournament.ErrUnknownFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", format, err)
	}
	return matches, nil
}
