package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/justinjudd/pairings"
	"github.com/justinjudd/pairings/matching"
	"github.com/justinjudd/pairings/models"
	storage "github.com/justinjudd/pairings/models/storm"
	"github.com/justinjudd/pairings/tournament"
)

var errBadRequest = errors.New("server: malformed request")

// Server exposes bracket generation, the bracket store and the matching solver over JSON
type Server struct {
	store    models.StorageEngine
	seed     int64
	maxBatch int
	maxVerts int
	router   *mux.Router
}

// New creates a Server. A non-zero seed makes every unseeded shuffle reproducible, maxBatch bounds the generators a
// single preview request runs at once and maxVertices bounds the vertex indices the matching endpoint accepts
func New(store models.StorageEngine, seed int64, maxBatch, maxVertices int) *Server {
	if maxBatch < 1 {
		maxBatch = 1
	}
	if maxVertices < 1 || maxVertices > matching.MaxVertices {
		maxVertices = matching.MaxVertices
	}
	s := &Server{store: store, seed: seed, maxBatch: maxBatch, maxVerts: maxVertices, router: mux.NewRouter()}
	s.router.HandleFunc("/brackets", s.createBracket).Methods(http.MethodPost)
	s.router.HandleFunc("/brackets/{id}/matches", s.listMatches).Methods(http.MethodGet)
	s.router.HandleFunc("/brackets/{id}/results", s.recordResult).Methods(http.MethodPost)
	s.router.HandleFunc("/events/{event}/brackets", s.listBrackets).Methods(http.MethodGet)
	s.router.HandleFunc("/preview", s.preview).Methods(http.MethodPost)
	s.router.HandleFunc("/matching", s.solve).Methods(http.MethodPost)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type competitorJSON struct {
	ID           string         `json:"id"`
	Score        float64        `json:"score"`
	Rating       float64        `json:"rating"`
	PairedUpDown bool           `json:"pairedUpDown"`
	ReceivedBye  bool           `json:"receivedBye"`
	Avoid        []string       `json:"avoid"`
	Colors       []models.Color `json:"colors"`
}

type bracketRequest struct {
	Event         string           `json:"event"`
	Format        string           `json:"format"`
	Competitors   []competitorJSON `json:"competitors"`
	StartingRound int              `json:"startingRound"`
	Consolation   bool             `json:"consolation"`
	Seeded        bool             `json:"seeded"`
	Rated         bool             `json:"rated"`
	Colors        bool             `json:"colors"`
	Seed          int64            `json:"seed"`
}

type pathJSON struct {
	Round int `json:"round"`
	Match int `json:"match"`
}

type matchJSON struct {
	ID      string    `json:"id,omitempty"`
	Round   int       `json:"round"`
	Match   int       `json:"match"`
	A       string    `json:"a,omitempty"`
	B       string    `json:"b,omitempty"`
	Win     *pathJSON `json:"win,omitempty"`
	Loss    *pathJSON `json:"loss,omitempty"`
	Bracket string    `json:"bracket"`
	Status  string    `json:"status,omitempty"`
	Winner  string    `json:"winner,omitempty"`
}

type bracketResponse struct {
	ID      string      `json:"id,omitempty"`
	Format  string      `json:"format"`
	Matches []matchJSON `json:"matches"`
}

var statusNames = map[models.Status]string{
	models.Status_NEW:       "new",
	models.Status_ONGOING:   "ongoing",
	models.Status_COMPLETED: "completed",
}

func toPath(p *models.Path) *pathJSON {
	if p == nil {
		return nil
	}
	return &pathJSON{Round: p.Round, Match: p.Match}
}

func toJSON(m models.Match) matchJSON {
	return matchJSON{
		Round:   m.Round,
		Match:   m.Match,
		A:       m.A,
		B:       m.B,
		Win:     toPath(m.Win),
		Loss:    toPath(m.Loss),
		Bracket: m.Bracket,
	}
}

func matchesJSON(matches []models.Match) []matchJSON {
	out := make([]matchJSON, len(matches))
	for i, m := range matches {
		out[i] = toJSON(m)
	}
	return out
}

func recordsJSON(records []models.Record) []matchJSON {
	out := make([]matchJSON, len(records))
	for i, r := range records {
		out[i] = toJSON(r.Match)
		out[i].ID = r.ID
		out[i].Status = statusNames[r.Status]
		out[i].Winner = r.Winner
	}
	return out
}

func (s *Server) source(seed int64) *rand.Rand {
	if seed == 0 {
		seed = s.seed
	}
	return pairings.NewRand(seed)
}

// generate runs the generator a bracket request names
func (s *Server) generate(req bracketRequest) (models.Format, []models.Match, error) {
	format, ok := models.ParseFormat(req.Format)
	if !ok {
		return 0, nil, fmt.Errorf("format %q: %w", req.Format, tournament.ErrUnknownFormat)
	}
	competitors := make([]models.Competitor, len(req.Competitors))
	for i, c := range req.Competitors {
		competitors[i] = models.Competitor{
			ID:           c.ID,
			Score:        c.Score,
			Rating:       c.Rating,
			PairedUpDown: c.PairedUpDown,
			ReceivedBye:  c.ReceivedBye,
			Avoid:        c.Avoid,
			Colors:       c.Colors,
		}
	}
	matches, err := pairings.Generate(format, competitors, pairings.Options{
		StartingRound: req.StartingRound,
		Consolation:   req.Consolation,
		Seeded:        req.Seeded,
		Rated:         req.Rated,
		Colors:        req.Colors,
		Rand:          s.source(req.Seed),
	})
	return format, matches, err
}

func (s *Server) createBracket(w http.ResponseWriter, r *http.Request) {
	var req bracketRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	format, matches, err := s.generate(req)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := s.store.SaveBracket(req.Event, format, matches)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("created %s bracket %s for %q with %d matches", format, id, req.Event, len(matches))

	records, err := s.store.Matches(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bracketResponse{ID: id, Format: format.String(), Matches: recordsJSON(records)})
}

func (s *Server) listBrackets(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.Brackets(mux.Vars(r)["event"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"brackets": ids})
}

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.Matches(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bracketResponse{ID: mux.Vars(r)["id"], Matches: recordsJSON(records)})
}

type resultRequest struct {
	Round  int    `json:"round"`
	Match  int    `json:"match"`
	Winner string `json:"winner"`
}

func (s *Server) recordResult(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req resultRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.RecordResult(id, req.Round, req.Match, req.Winner); err != nil {
		writeError(w, err)
		return
	}
	records, err := s.store.Matches(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bracketResponse{ID: id, Matches: recordsJSON(records)})
}

type previewRequest struct {
	Brackets []bracketRequest `json:"brackets"`
}

// preview generates every requested bracket concurrently without storing them
func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	results := make([]bracketResponse, len(req.Brackets))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(s.maxBatch)
	for i, b := range req.Brackets {
		i, b := i, b
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			format, matches, err := s.generate(b)
			if err != nil {
				return fmt.Errorf("bracket %d: %w", i, err)
			}
			results[i] = bracketResponse{Format: format.String(), Matches: matchesJSON(matches)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]bracketResponse{"brackets": results})
}

type matchingRequest struct {
	Edges          [][3]int64 `json:"edges"`
	MaxCardinality bool       `json:"maxCardinality"`
}

func (s *Server) solve(w http.ResponseWriter, r *http.Request) {
	var req matchingRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	edges := make([]matching.Edge, len(req.Edges))
	limit := int64(s.maxVerts)
	for i, e := range req.Edges {
		if e[0] >= limit || e[1] >= limit {
			writeError(w, fmt.Errorf("edge %d (%d, %d): limit %d: %w", i, e[0], e[1], limit, matching.ErrVertexOutOfRange))
			return
		}
		edges[i] = matching.Edge{I: int(e[0]), J: int(e[1]), Weight: e[2]}
	}
	mates, err := matching.MaxWeightMatching(edges, req.MaxCardinality)
	if err != nil {
		writeError(w, err)
		return
	}
	if mates == nil {
		mates = []int{}
	}
	writeJSON(w, http.StatusOK, map[string][]int{"mates": mates})
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%v: %w", err, errBadRequest)
	}
	return nil
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, tournament.ErrTooFewCompetitors),
		errors.Is(err, tournament.ErrDuplicateCompetitor),
		errors.Is(err, tournament.ErrUnknownFormat),
		errors.Is(err, matching.ErrNegativeVertex),
		errors.Is(err, matching.ErrSelfLoop),
		errors.Is(err, matching.ErrVertexOutOfRange),
		errors.Is(err, storage.ErrNotInMatch):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrMatchClosed), errors.Is(err, storage.ErrMatchNotReady):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
