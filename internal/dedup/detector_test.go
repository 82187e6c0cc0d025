package dedup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/innovatopia-jp/sourcedesk/internal/db"
	"github.com/innovatopia-jp/sourcedesk/internal/source"
)

type fakeStore struct {
	urlMatch     *db.SourceMatch
	urlErr       error
	urlCalls     []string
	urlStates    []int
	keywordHits  []db.SourceMatch
	keywordErr   error
	keywordCalls [][]string
}

func (s *fakeStore) URLMatch(_ context.Context, url string, state int) (*db.SourceMatch, error) {
	s.urlCalls = append(s.urlCalls, url)
	s.urlStates = append(s.urlStates, state)
	if s.urlErr != nil {
		return nil, s.urlErr
	}
	if s.urlMatch == nil {
		return nil, nil
	}
	copyRow := *s.urlMatch
	return &copyRow, nil
}

func (s *fakeStore) KeywordMatches(_ context.Context, tokens []string, state int) ([]db.SourceMatch, error) {
	s.keywordCalls = append(s.keywordCalls, tokens)
	if s.keywordErr != nil {
		return nil, s.keywordErr
	}
	return s.keywordHits, nil
}

func TestCheckReportsBothMatchKinds(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		urlMatch: &db.SourceMatch{
			SourceID:  10,
			URL:       "https://example.com/a",
			Title:     "existing",
			UpdatedAt: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		},
		keywordHits: []db.SourceMatch{
			{SourceID: 9, Keywords: "tokyo"},
			{SourceID: 4, Keywords: "olympics,tokyo"},
		},
	}
	detector := NewDetector(store)

	matches, err := detector.Check(context.Background(), "https://example.com/a", []string{"Tokyo", "Olympics"}, source.StateWorking)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if len(matches.URLMatches) != 1 || matches.URLMatches[0].SourceID != 10 {
		t.Fatalf("url matches = %+v, want the single stored hit", matches.URLMatches)
	}
	if len(matches.KeywordMatches) != 2 {
		t.Fatalf("keyword matches = %+v, want both stored hits in order", matches.KeywordMatches)
	}
	if matches.KeywordMatches[0].SourceID != 9 {
		t.Fatalf("keyword match order changed: %+v", matches.KeywordMatches)
	}

	if store.urlStates[0] != int(source.StateWorking) {
		t.Fatalf("url lookup state = %d, want working", store.urlStates[0])
	}
	tokens := store.keywordCalls[0]
	if len(tokens) != 2 || tokens[0] != "tokyo" || tokens[1] != "olympics" {
		t.Fatalf("keyword lookup tokens = %v, want normalized forms", tokens)
	}
}

func TestCheckSkipsKeywordQueryWhenNothingSurvives(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	detector := NewDetector(store)

	matches, err := detector.Check(context.Background(), "https://example.com/a", []string{"  ", "!!!"}, source.StateWorking)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(matches.URLMatches) != 0 || len(matches.KeywordMatches) != 0 {
		t.Fatalf("expected empty matches, got %+v", matches)
	}
	if len(store.keywordCalls) != 0 {
		t.Fatalf("expected no keyword query, got %d calls", len(store.keywordCalls))
	}
}

func TestCheckSkipsURLQueryWithoutURL(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		keywordHits: []db.SourceMatch{{SourceID: 3, Keywords: "tokyo"}},
	}
	detector := NewDetector(store)

	matches, err := detector.Check(context.Background(), "", []string{"tokyo"}, source.StateWorking)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(store.urlCalls) != 0 {
		t.Fatalf("expected no URL query for an empty URL, got %v", store.urlCalls)
	}
	if len(matches.URLMatches) != 0 {
		t.Fatalf("url matches = %+v, want none", matches.URLMatches)
	}
	if len(matches.KeywordMatches) != 1 {
		t.Fatalf("keyword matches = %+v, want the stored hit", matches.KeywordMatches)
	}
}

func TestCheckEmptyResultsAreNonNilSlices(t *testing.T) {
	t.Parallel()

	detector := NewDetector(&fakeStore{})
	matches, err := detector.Check(context.Background(), "https://example.com/a", []string{"tokyo"}, source.StateWorking)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if matches.URLMatches == nil || matches.KeywordMatches == nil {
		t.Fatal("expected non-nil empty slices for JSON serialization")
	}
}

func TestCheckSurfacesStoreErrors(t *testing.T) {
	t.Parallel()

	detector := NewDetector(&fakeStore{urlErr: fmt.Errorf("connection reset")})
	if _, err := detector.Check(context.Background(), "https://example.com/a", nil, source.StateWorking); err == nil {
		t.Fatal("expected url lookup errors to surface")
	}

	detector = NewDetector(&fakeStore{keywordErr: fmt.Errorf("connection reset")})
	if _, err := detector.Check(context.Background(), "https://example.com/a", []string{"tokyo"}, source.StateWorking); err == nil {
		t.Fatal("expected keyword lookup errors to surface")
	}
}
