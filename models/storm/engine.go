package storm

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/justinjudd/pairings/models"

	"github.com/asdine/storm"
	"github.com/asdine/storm/codec/msgpack"
	"github.com/asdine/storm/q"
	"github.com/rs/xid"
)

var (
	// ErrMatchNotFound indicates no match at the requested round and match number
	ErrMatchNotFound = errors.New("storm: match not found")
	// ErrNotInMatch indicates the reported winner does not hold a slot in the match
	ErrNotInMatch = errors.New("storm: winner is not in this match")
	// ErrMatchClosed indicates a result was already recorded
	ErrMatchClosed = errors.New("storm: match already completed")
	// ErrMatchNotReady indicates the match is still waiting for a competitor routed from another match
	ErrMatchNotReady = errors.New("storm: match is waiting for an opponent")
)

type engine struct {
	*storm.DB
}

// NewStorageEngine creates and returns a StorageEngine backed by a storm database at path
func NewStorageEngine(path string) (models.StorageEngine, error) {
	db, err := storm.Open(path, storm.Codec(msgpack.Codec))
	if err != nil {
		return nil, fmt.Errorf("Unable to open storage engine: %w", err)
	}

	return &engine{db}, nil
}

type bracket struct {
	ID      string `storm:"id"`
	Event   string `storm:"index"`
	Format  int32
	Created time.Time
}

type match struct {
	ID        string `storm:"id"`
	BracketID string `storm:"index"`
	Round     int
	Number    int
	A         string
	B         string
	WinRound  int
	WinMatch  int
	LossRound int
	LossMatch int
	Bracket   string
	Status    int32
	Winner    string
}

func newMatch(bracketID string, m models.Match) match {
	rec := match{
		ID:        xid.New().String(),
		BracketID: bracketID,
		Round:     m.Round,
		Number:    m.Match,
		A:         m.A,
		B:         m.B,
		Bracket:   m.Bracket,
		Status:    int32(models.Status_NEW),
	}
	if m.Win != nil {
		rec.WinRound, rec.WinMatch = m.Win.Round, m.Win.Match
	}
	if m.Loss != nil {
		rec.LossRound, rec.LossMatch = m.Loss.Round, m.Loss.Match
	}
	rec.refresh()
	return rec
}

// refresh marks a waiting match ongoing once both slots are filled
func (m *match) refresh() {
	if m.Status == int32(models.Status_NEW) && m.A != "" && m.B != "" {
		m.Status = int32(models.Status_ONGOING)
	}
}

func (m match) record() models.Record {
	r := models.Record{
		Match: models.Match{
			Round:   m.Round,
			Match:   m.Number,
			A:       m.A,
			B:       m.B,
			Bracket: m.Bracket,
		},
		ID:     m.ID,
		Status: models.Status(m.Status),
		Winner: m.Winner,
	}
	if m.WinRound > 0 {
		r.Win = &models.Path{Round: m.WinRound, Match: m.WinMatch}
	}
	if m.LossRound > 0 {
		r.Loss = &models.Path{Round: m.LossRound, Match: m.LossMatch}
	}
	return r
}

func (e *engine) SaveBracket(event string, format models.Format, matches []models.Match) (string, error) {
	tx, err := e.Begin(true)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	b := bracket{ID: xid.New().String(), Event: event, Format: int32(format), Created: time.Now().UTC()}
	if err := tx.Save(&b); err != nil {
		return "", fmt.Errorf("Error saving bracket: %w", err)
	}
	for _, m := range matches {
		rec := newMatch(b.ID, m)
		if err := tx.Save(&rec); err != nil {
			return "", fmt.Errorf("Error saving round %d match %d: %w", m.Round, m.Match, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit bracket: %w", err)
	}
	return b.ID, nil
}

func (e *engine) Brackets(event string) ([]string, error) {
	var brackets []bracket
	err := e.Select(q.Eq("Event", event)).Find(&brackets)
	if err != nil && !errors.Is(err, storm.ErrNotFound) {
		return nil, fmt.Errorf("Error getting brackets for %q: %w", event, err)
	}
	sort.Slice(brackets, func(i, j int) bool {
		if !brackets[i].Created.Equal(brackets[j].Created) {
			return brackets[i].Created.Before(brackets[j].Created)
		}
		return brackets[i].ID < brackets[j].ID
	})
	ids := make([]string, len(brackets))
	for i, b := range brackets {
		ids[i] = b.ID
	}
	return ids, nil
}

func (e *engine) Matches(bracketID string) ([]models.Record, error) {
	matches, err := bracketMatches(e.DB, bracketID)
	if err != nil {
		return nil, err
	}
	records := make([]models.Record, len(matches))
	for i, m := range matches {
		records[i] = m.record()
	}
	return records, nil
}

func bracketMatches(node storm.Node, bracketID string) ([]match, error) {
	var matches []match
	err := node.Select(q.Eq("BracketID", bracketID)).Find(&matches)
	if err != nil {
		if errors.Is(err, storm.ErrNotFound) {
			return nil, fmt.Errorf("bracket %s: %w", bracketID, ErrMatchNotFound)
		}
		return nil, fmt.Errorf("Error getting matches for bracket %s: %w", bracketID, err)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Round != matches[j].Round {
			return matches[i].Round < matches[j].Round
		}
		return matches[i].Number < matches[j].Number
	})
	return matches, nil
}

// RecordResult completes a match and sends the winner along its win path and the loser along its loss path. Both
// land in the first free slot of their target match
func (e *engine) RecordResult(bracketID string, round, number int, winner string) error {
	tx, err := e.Begin(true)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	matches, err := bracketMatches(tx, bracketID)
	if err != nil {
		return err
	}
	m := find(matches, round, number)
	if m == nil {
		return fmt.Errorf("round %d match %d: %w", round, number, ErrMatchNotFound)
	}
	if m.Status == int32(models.Status_COMPLETED) {
		return fmt.Errorf("round %d match %d: %w", round, number, ErrMatchClosed)
	}
	if winner == "" || (winner != m.A && winner != m.B) {
		return fmt.Errorf("%q in round %d match %d: %w", winner, round, number, ErrNotInMatch)
	}
	if (m.A == "" || m.B == "") && awaiting(matches, m) {
		return fmt.Errorf("round %d match %d: %w", round, number, ErrMatchNotReady)
	}

	loser := m.A
	if winner == m.A {
		loser = m.B
	}
	m.Winner = winner
	m.Status = int32(models.Status_COMPLETED)
	if err := tx.Save(m); err != nil {
		return fmt.Errorf("Error saving result: %w", err)
	}

	if m.WinRound > 0 {
		if err := advance(tx, matches, m.WinRound, m.WinMatch, winner); err != nil {
			return err
		}
	}
	if m.LossRound > 0 && loser != "" {
		if err := advance(tx, matches, m.LossRound, m.LossMatch, loser); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func find(matches []match, round, number int) *match {
	for i := range matches {
		if matches[i].Round == round && matches[i].Number == number {
			return &matches[i]
		}
	}
	return nil
}

// awaiting reports whether an unfinished match still routes a competitor into m
func awaiting(matches []match, m *match) bool {
	for _, src := range matches {
		if src.Status == int32(models.Status_COMPLETED) {
			continue
		}
		if (src.WinRound == m.Round && src.WinMatch == m.Number) ||
			(src.LossRound == m.Round && src.LossMatch == m.Number) {
			return true
		}
	}
	return false
}

func advance(tx storm.Node, matches []match, round, number int, id string) error {
	target := find(matches, round, number)
	if target == nil {
		return fmt.Errorf("route to round %d match %d: %w", round, number, ErrMatchNotFound)
	}
	switch {
	case target.A == "":
		target.A = id
	case target.B == "":
		target.B = id
	default:
		return fmt.Errorf("route %q to round %d match %d: both slots already filled", id, round, number)
	}
	target.refresh()
	if err := tx.Save(target); err != nil {
		return fmt.Errorf("Error advancing %q: %w", id, err)
	}
	return nil
}
