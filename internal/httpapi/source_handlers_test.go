package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/innovatopia-jp/sourcedesk/internal/db"
	"github.com/innovatopia-jp/sourcedesk/internal/dedup"
	"github.com/innovatopia-jp/sourcedesk/internal/source"
)

type fakeSourceStore struct {
	sources       map[int64]*db.SourceRecord
	nextID        int64
	createErr     error
	createCalls   []db.CreateSourceParams
	searchCalls   [][]string
	searchState   []int
	searchResults []db.SourceSearchHit
	authorCounts  db.StateCounts
	keywordCounts db.StateCounts
}

func newFakeSourceStore() *fakeSourceStore {
	return &fakeSourceStore{
		sources: map[int64]*db.SourceRecord{},
		nextID:  1,
	}
}

func (s *fakeSourceStore) CreateSource(_ context.Context, params db.CreateSourceParams) (int64, error) {
	s.createCalls = append(s.createCalls, params)
	if s.createErr != nil {
		return 0, s.createErr
	}
	id := s.nextID
	s.nextID++
	s.sources[id] = &db.SourceRecord{
		ID:        id,
		URL:       params.URL,
		Title:     params.Title,
		AuthorID:  params.AuthorID,
		Comment:   params.Comment,
		ContentMD: params.ContentMD,
		State:     int(source.StateWorking),
		UpdatedAt: params.Now,
		Keywords:  strings.Join(params.Keywords, ","),
	}
	return id, nil
}

func (s *fakeSourceStore) GetSource(_ context.Context, sourceID int64) (*db.SourceRecord, error) {
	row, exists := s.sources[sourceID]
	if !exists {
		return nil, db.ErrNoRows
	}
	copyRow := *row
	return &copyRow, nil
}

func (s *fakeSourceStore) ListSourcesByAuthor(_ context.Context, authorID int64, state int) ([]db.SourceRecord, error) {
	items := make([]db.SourceRecord, 0, len(s.sources))
	for _, row := range s.sources {
		if row.AuthorID == authorID && row.State == state {
			items = append(items, *row)
		}
	}
	return items, nil
}

func (s *fakeSourceStore) UpdateSourceContent(_ context.Context, sourceID int64, title, comment, contentMD *string, now time.Time) (int64, error) {
	row, exists := s.sources[sourceID]
	if !exists {
		return 0, nil
	}
	if title != nil {
		row.Title = *title
	}
	if comment != nil {
		row.Comment = *comment
	}
	if contentMD != nil {
		row.ContentMD = *contentMD
	}
	row.UpdatedAt = now
	return 1, nil
}

func (s *fakeSourceStore) UpdateSourceState(_ context.Context, sourceID int64, state int, now time.Time) (int64, error) {
	row, exists := s.sources[sourceID]
	if !exists {
		return 0, nil
	}
	row.State = state
	row.UpdatedAt = now
	return 1, nil
}

func (s *fakeSourceStore) SearchSourcesByKeywords(_ context.Context, tokens []string, state int) ([]db.SourceSearchHit, error) {
	s.searchCalls = append(s.searchCalls, tokens)
	s.searchState = append(s.searchState, state)
	return s.searchResults, nil
}

func (s *fakeSourceStore) AuthorStateCounts(_ context.Context, authorID int64) (db.StateCounts, error) {
	return s.authorCounts, nil
}

func (s *fakeSourceStore) KeywordStateCounts(_ context.Context, token string) (db.StateCounts, error) {
	return s.keywordCounts, nil
}

type fakeDedupStore struct {
	urlMatch     *db.SourceMatch
	urlCalls     []string
	keywordHits  []db.SourceMatch
	keywordCalls [][]string
}

func (s *fakeDedupStore) URLMatch(_ context.Context, url string, state int) (*db.SourceMatch, error) {
	s.urlCalls = append(s.urlCalls, url)
	if s.urlMatch == nil {
		return nil, nil
	}
	copyRow := *s.urlMatch
	return &copyRow, nil
}

func (s *fakeDedupStore) KeywordMatches(_ context.Context, tokens []string, state int) ([]db.SourceMatch, error) {
	s.keywordCalls = append(s.keywordCalls, tokens)
	return s.keywordHits, nil
}

func newTestServer(store *fakeSourceStore, dedupStore *fakeDedupStore) *Server {
	if store == nil {
		store = newFakeSourceStore()
	}
	if dedupStore == nil {
		dedupStore = &fakeDedupStore{}
	}
	return &Server{
		logger:   zerolog.Nop(),
		manager:  source.NewManager(store),
		detector: dedup.NewDetector(dedupStore),
	}
}

func newJSONContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHandleCreateSource_NormalizesAndPersists(t *testing.T) {
	t.Parallel()

	store := newFakeSourceStore()
	server := newTestServer(store, nil)

	body := `{"author_id":7,"url":"https://example.com/article?utm_source=x#top","title":"T","comment":"c","keywords":["Foo Bar","foo-bar","Tokyo"]}`
	c, rec := newJSONContext(http.MethodPost, "/api/v1/sources", body)

	if err := server.handleCreateSource(c); err != nil {
		t.Fatalf("handleCreateSource returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: got %d want %d (%s)", rec.Code, http.StatusCreated, rec.Body.String())
	}

	if len(store.createCalls) != 1 {
		t.Fatalf("expected one create call, got %d", len(store.createCalls))
	}
	call := store.createCalls[0]
	if call.URL != "https://example.com/article" {
		t.Errorf("stored URL = %q, want canonical form without query and fragment", call.URL)
	}
	if len(call.Keywords) != 2 || call.Keywords[0] != "foo-bar" || call.Keywords[1] != "tokyo" {
		t.Errorf("stored keywords = %v, want normalized deduped set", call.Keywords)
	}
}

func TestHandleCreateSource_RejectsOversizedComment(t *testing.T) {
	t.Parallel()

	store := newFakeSourceStore()
	server := newTestServer(store, nil)

	oversized := strings.Repeat("x", source.MaxCommentBytes+1)
	body := `{"author_id":7,"url":"https://example.com/a","comment":"` + oversized + `"}`
	c, rec := newJSONContext(http.MethodPost, "/api/v1/sources", body)

	if err := server.handleCreateSource(c); err != nil {
		t.Fatalf("handleCreateSource returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusBadRequest)
	}
	if len(store.createCalls) != 0 {
		t.Fatalf("expected no create call for a rejected comment, got %d", len(store.createCalls))
	}
}

func TestHandleCreateSource_RejectsUnregisteredAuthor(t *testing.T) {
	t.Parallel()

	store := newFakeSourceStore()
	store.createErr = &pgconn.PgError{Code: "23503", ConstraintName: "fk_sources_author"}
	server := newTestServer(store, nil)

	body := `{"author_id":99,"url":"https://example.com/a","comment":"c"}`
	c, rec := newJSONContext(http.MethodPost, "/api/v1/sources", body)

	if err := server.handleCreateSource(c); err != nil {
		t.Fatalf("handleCreateSource returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d (%s)", rec.Code, http.StatusBadRequest, rec.Body.String())
	}

	resp := decodeResponse(t, rec)
	data, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data envelope in %v", resp)
	}
	fieldErrors, ok := data["validation_errors"].(map[string]any)
	if !ok {
		t.Fatalf("missing validation errors in %v", data)
	}
	if _, ok := fieldErrors["author_id"]; !ok {
		t.Fatalf("expected an author_id field error, got %v", fieldErrors)
	}
}

func TestHandleGetSource_NotFound(t *testing.T) {
	t.Parallel()

	server := newTestServer(nil, nil)
	c, rec := newJSONContext(http.MethodGet, "/api/v1/sources/99", "")
	c.SetParamNames("id")
	c.SetParamValues("99")

	if err := server.handleGetSource(c); err != nil {
		t.Fatalf("handleGetSource returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleUpdateSourceState_LooseLabel(t *testing.T) {
	t.Parallel()

	store := newFakeSourceStore()
	server := newTestServer(store, nil)
	_, err := server.manager.Create(context.Background(), source.CreateRequest{
		AuthorID: 1,
		URL:      "https://example.com/a",
	})
	if err != nil {
		t.Fatalf("seed source: %v", err)
	}

	c, rec := newJSONContext(http.MethodPatch, "/api/v1/sources/1/state", `{"state":"done"}`)
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := server.handleUpdateSourceState(c); err != nil {
		t.Fatalf("handleUpdateSourceState returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if store.sources[1].State != int(source.StateDone) {
		t.Fatalf("stored state = %d, want %d", store.sources[1].State, int(source.StateDone))
	}
}

func TestHandleUpdateSourceContent_RejectsUnknownField(t *testing.T) {
	t.Parallel()

	server := newTestServer(nil, nil)
	c, rec := newJSONContext(http.MethodPatch, "/api/v1/sources/1", `{"keywords":["x"]}`)
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := server.handleUpdateSourceContent(c); err != nil {
		t.Fatalf("handleUpdateSourceContent returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleListSources_DispatchesDuplicateCheck(t *testing.T) {
	t.Parallel()

	dedupStore := &fakeDedupStore{
		urlMatch: &db.SourceMatch{SourceID: 5, URL: "https://example.com/a", Title: "existing"},
	}
	server := newTestServer(nil, dedupStore)

	c, rec := newJSONContext(http.MethodGet, "/api/v1/sources?url=https://example.com/a?ref=1&keywords=tokyo", "")

	if err := server.handleListSources(c); err != nil {
		t.Fatalf("handleListSources returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(dedupStore.urlCalls) != 1 || dedupStore.urlCalls[0] != "https://example.com/a" {
		t.Fatalf("expected one canonical URL lookup, got %v", dedupStore.urlCalls)
	}
	if len(dedupStore.keywordCalls) != 1 {
		t.Fatalf("expected one keyword lookup, got %d", len(dedupStore.keywordCalls))
	}

	resp := decodeResponse(t, rec)
	data, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data envelope in %v", resp)
	}
	urlMatches, ok := data["url_matches"].([]any)
	if !ok || len(urlMatches) != 1 {
		t.Fatalf("expected one url match, got %v", data["url_matches"])
	}
}

func TestHandleListSources_RequiresAuthorWithoutDupParams(t *testing.T) {
	t.Parallel()

	server := newTestServer(nil, nil)
	c, rec := newJSONContext(http.MethodGet, "/api/v1/sources", "")

	if err := server.handleListSources(c); err != nil {
		t.Fatalf("handleListSources returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleSearchSources_ExplicitKeywords(t *testing.T) {
	t.Parallel()

	store := newFakeSourceStore()
	store.searchResults = []db.SourceSearchHit{
		{SourceRecord: db.SourceRecord{ID: 3, Title: "hit"}, MatchedKeywords: "tokyo", MatchCount: 1},
	}
	server := newTestServer(store, nil)

	c, rec := newJSONContext(http.MethodGet, "/api/v1/search-sources?keywords=Tokyo&keywords=Olympics&state=done", "")

	if err := server.handleSearchSources(c); err != nil {
		t.Fatalf("handleSearchSources returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(store.searchCalls) != 1 {
		t.Fatalf("expected one search call, got %d", len(store.searchCalls))
	}
	tokens := store.searchCalls[0]
	if len(tokens) != 2 || tokens[0] != "tokyo" || tokens[1] != "olympics" {
		t.Fatalf("search tokens = %v, want normalized forms", tokens)
	}
	if store.searchState[0] != int(source.StateDone) {
		t.Fatalf("search state = %d, want %d", store.searchState[0], int(source.StateDone))
	}
}
