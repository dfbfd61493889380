package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "github.com/justinjudd/pairings/models/storm"
)

func newServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.NewStorageEngine(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store, 17, 2, 64)
}

func do(t *testing.T, s *Server, method, url string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func competitorList(ids ...string) []competitorJSON {
	out := make([]competitorJSON, len(ids))
	for i, id := range ids {
		out[i] = competitorJSON{ID: id}
	}
	return out
}

func TestBracketLifecycle(t *testing.T) {
	s := newServer(t)

	var created bracketResponse
	code := do(t, s, http.MethodPost, "/brackets", bracketRequest{
		Event:       "club",
		Format:      "single-elimination",
		Competitors: competitorList("s1", "s2", "s3", "s4"),
		Seeded:      true,
	}, &created)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "single-elimination", created.Format)
	require.Len(t, created.Matches, 3)
	assert.Equal(t, "ongoing", created.Matches[0].Status)
	assert.Equal(t, &pathJSON{Round: 2, Match: 1}, created.Matches[0].Win)

	var listed map[string][]string
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/events/club/brackets", nil, &listed))
	assert.Equal(t, []string{created.ID}, listed["brackets"])

	var updated bracketResponse
	code = do(t, s, http.MethodPost, "/brackets/"+created.ID+"/results", resultRequest{Round: 1, Match: 1, Winner: "s4"}, &updated)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", updated.Matches[0].Status)
	assert.Equal(t, "s4", updated.Matches[0].Winner)
	assert.Equal(t, "s4", updated.Matches[2].A)

	var errBody map[string]string
	code = do(t, s, http.MethodPost, "/brackets/"+created.ID+"/results", resultRequest{Round: 1, Match: 1, Winner: "s4"}, &errBody)
	assert.Equal(t, http.StatusConflict, code)
	assert.NotEmpty(t, errBody["error"])

	code = do(t, s, http.MethodPost, "/brackets/"+created.ID+"/results", resultRequest{Round: 1, Match: 2, Winner: "s9"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	var stored bracketResponse
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/brackets/"+created.ID+"/matches", nil, &stored))
	assert.Equal(t, updated.Matches, stored.Matches)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/brackets/nope/matches", nil, nil))
}

func TestCreateBracketErrors(t *testing.T) {
	s := newServer(t)
	tests := []struct {
		name string
		req  bracketRequest
	}{
		{"unknown format", bracketRequest{Format: "ladder", Competitors: competitorList("a", "b")}},
		{"too few", bracketRequest{Format: "double-elimination", Competitors: competitorList("a", "b")}},
		{"duplicate", bracketRequest{Format: "round-robin", Competitors: competitorList("a", "a")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/brackets", tc.req, nil))
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/brackets", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreview(t *testing.T) {
	s := newServer(t)
	var out map[string][]bracketResponse
	code := do(t, s, http.MethodPost, "/preview", previewRequest{Brackets: []bracketRequest{
		{Format: "single-elimination", Competitors: competitorList("a", "b", "c", "d", "e")},
		{Format: "double-elimination", Competitors: competitorList("a", "b", "c", "d", "e")},
		{Format: "double-round-robin", Competitors: competitorList("a", "b", "c")},
		{Format: "swiss", Competitors: competitorList("a", "b", "c", "d"), Colors: true},
		{Format: "stepladder", Competitors: competitorList("a", "b", "c")},
	}}, &out)
	require.Equal(t, http.StatusOK, code)

	brackets := out["brackets"]
	require.Len(t, brackets, 5)
	assert.Len(t, brackets[0].Matches, 4)
	assert.Len(t, brackets[1].Matches, 8)
	assert.Len(t, brackets[2].Matches, 12)
	assert.Len(t, brackets[3].Matches, 2)
	assert.Len(t, brackets[4].Matches, 2)
	for _, b := range brackets {
		assert.Empty(t, b.ID, "previews are not stored")
	}

	var again map[string][]bracketResponse
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/preview", previewRequest{Brackets: []bracketRequest{
		{Format: "single-elimination", Competitors: competitorList("a", "b", "c", "d", "e")},
	}}, &again))
	assert.Equal(t, brackets[0], again["brackets"][0], "a fixed seed repeats the draw")

	code = do(t, s, http.MethodPost, "/preview", previewRequest{Brackets: []bracketRequest{
		{Format: "stepladder", Competitors: competitorList("a", "b")},
		{Format: "double-elimination", Competitors: competitorList("a")},
	}}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMatching(t *testing.T) {
	s := newServer(t)
	var out map[string][]int
	code := do(t, s, http.MethodPost, "/matching", matchingRequest{
		Edges: [][3]int64{{0, 1, 3}, {1, 2, 4}, {2, 3, 3}},
	}, &out)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []int{1, 0, 3, 2}, out["mates"])

	code = do(t, s, http.MethodPost, "/matching", matchingRequest{}, &out)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, out["mates"])

	code = do(t, s, http.MethodPost, "/matching", matchingRequest{Edges: [][3]int64{{-1, 2, 1}}}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	var errBody map[string]string
	code = do(t, s, http.MethodPost, "/matching", matchingRequest{Edges: [][3]int64{{0, 1 << 60, 1}}}, &errBody)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, errBody["error"], "out of range")

	code = do(t, s, http.MethodPost, "/matching", matchingRequest{Edges: [][3]int64{{0, 64, 1}}}, nil)
	assert.Equal(t, http.StatusBadRequest, code, "indices stop below the configured limit")
	code = do(t, s, http.MethodPost, "/matching", matchingRequest{Edges: [][3]int64{{0, 63, 1}}}, &out)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["mates"], 64)
}
