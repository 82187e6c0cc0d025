package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/innovatopia-jp/sourcedesk/internal/db"
	"github.com/innovatopia-jp/sourcedesk/internal/globaltime"
	"github.com/innovatopia-jp/sourcedesk/internal/normalize"
)

const (
	// MaxCommentBytes bounds the comment column; oversized comments are
	// rejected, never truncated.
	MaxCommentBytes = 4000
	// MaxKeywordsPerSource bounds the normalized keyword set per source.
	MaxKeywordsPerSource = 200
)

// ErrNotFound reports that the referenced source does not exist. It is
// distinct from validation failures.
var ErrNotFound = errors.New("source not found")

// ValidationError identifies the offending field of a rejected request.
// Validation always happens before any store access, so a rejected request is
// never partially applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Store is the persistence surface the manager needs, implemented by
// *db.Pool.
type Store interface {
	CreateSource(ctx context.Context, params db.CreateSourceParams) (int64, error)
	GetSource(ctx context.Context, sourceID int64) (*db.SourceRecord, error)
	ListSourcesByAuthor(ctx context.Context, authorID int64, state int) ([]db.SourceRecord, error)
	UpdateSourceContent(ctx context.Context, sourceID int64, title, comment, contentMD *string, now time.Time) (int64, error)
	UpdateSourceState(ctx context.Context, sourceID int64, state int, now time.Time) (int64, error)
	SearchSourcesByKeywords(ctx context.Context, tokens []string, state int) ([]db.SourceSearchHit, error)
	AuthorStateCounts(ctx context.Context, authorID int64) (db.StateCounts, error)
	KeywordStateCounts(ctx context.Context, token string) (db.StateCounts, error)
}

// Manager validates requests and drives the store.
type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// CreateRequest carries a new-source submission. Keywords may be raw
// suggestions; they are normalized here before persistence.
type CreateRequest struct {
	AuthorID  int64
	URL       string
	Title     string
	Comment   string
	ContentMD string
	Keywords  []string
}

// Create persists a source in Working state together with its normalized
// keyword set in one transaction, and returns the new source id.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (int64, error) {
	if req.AuthorID <= 0 {
		return 0, invalidField("author_id", "must be a positive id")
	}

	canonical := normalize.URL(req.URL)
	if canonical.Value == "" {
		return 0, invalidField("url", "must be an absolute http(s) URL")
	}

	if len(req.Comment) > MaxCommentBytes {
		return 0, invalidField("comment", fmt.Sprintf("exceeds %d bytes", MaxCommentBytes))
	}

	tokens := normalize.Keywords(req.Keywords)
	if len(tokens) > MaxKeywordsPerSource {
		return 0, invalidField("keywords", fmt.Sprintf("exceeds %d keywords after normalization", MaxKeywordsPerSource))
	}

	sourceID, err := m.store.CreateSource(ctx, db.CreateSourceParams{
		URL:       canonical.Value,
		Title:     req.Title,
		AuthorID:  req.AuthorID,
		Comment:   req.Comment,
		ContentMD: req.ContentMD,
		Keywords:  tokens,
		Now:       globaltime.UTC(),
	})
	if err != nil {
		return 0, fmt.Errorf("create source: %w", err)
	}
	return sourceID, nil
}

// ContentUpdate carries a partial content edit; nil fields stay unchanged.
// Keywords and state are never touched here.
type ContentUpdate struct {
	Title     *string
	Comment   *string
	ContentMD *string
}

// UpdateContent applies a partial content edit and refreshes updated_at.
func (m *Manager) UpdateContent(ctx context.Context, sourceID int64, update ContentUpdate) error {
	if sourceID <= 0 {
		return invalidField("source_id", "must be a positive id")
	}
	if update.Title == nil && update.Comment == nil && update.ContentMD == nil {
		return invalidField("body", "at least one of title, comment, content_md is required")
	}
	if update.Comment != nil && len(*update.Comment) > MaxCommentBytes {
		return invalidField("comment", fmt.Sprintf("exceeds %d bytes", MaxCommentBytes))
	}

	affected, err := m.store.UpdateSourceContent(ctx, sourceID, update.Title, update.Comment, update.ContentMD, globaltime.UTC())
	if err != nil {
		return fmt.Errorf("update source content: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ChangeState moves a source to the given state. Transitions are not
// restricted; every change refreshes updated_at.
func (m *Manager) ChangeState(ctx context.Context, sourceID int64, state State) error {
	if sourceID <= 0 {
		return invalidField("source_id", "must be a positive id")
	}
	if !state.Valid() {
		return invalidField("state", "must be working, done, or aborted")
	}

	affected, err := m.store.UpdateSourceState(ctx, sourceID, int(state), globaltime.UTC())
	if err != nil {
		return fmt.Errorf("update source state: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID fetches one source with its keyword set.
func (m *Manager) GetByID(ctx context.Context, sourceID int64) (*db.SourceRecord, error) {
	if sourceID <= 0 {
		return nil, invalidField("source_id", "must be a positive id")
	}
	record, err := m.store.GetSource(ctx, sourceID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get source: %w", err)
	}
	return record, nil
}

// ListByAuthor lists an author's sources in one state, newest first.
func (m *Manager) ListByAuthor(ctx context.Context, authorID int64, state State) ([]db.SourceRecord, error) {
	if authorID <= 0 {
		return nil, invalidField("author_id", "must be a positive id")
	}
	if !state.Valid() {
		return nil, invalidField("state", "must be working, done, or aborted")
	}
	items, err := m.store.ListSourcesByAuthor(ctx, authorID, int(state))
	if err != nil {
		return nil, fmt.Errorf("list sources by author: %w", err)
	}
	return items, nil
}

// SearchByKeywords normalizes the candidates and ranks matching sources by
// match count, then recency. An empty candidate set yields no results.
func (m *Manager) SearchByKeywords(ctx context.Context, keywords []string, state State) ([]db.SourceSearchHit, error) {
	if !state.Valid() {
		return nil, invalidField("state", "must be working, done, or aborted")
	}
	tokens := normalize.Keywords(keywords)
	if len(tokens) == 0 {
		return nil, nil
	}
	hits, err := m.store.SearchSourcesByKeywords(ctx, tokens, int(state))
	if err != nil {
		return nil, fmt.Errorf("search sources: %w", err)
	}
	return hits, nil
}

// StateCountsByAuthor aggregates an author's sources per state.
func (m *Manager) StateCountsByAuthor(ctx context.Context, authorID int64) (db.StateCounts, error) {
	if authorID <= 0 {
		return db.StateCounts{}, invalidField("author_id", "must be a positive id")
	}
	counts, err := m.store.AuthorStateCounts(ctx, authorID)
	if err != nil {
		return db.StateCounts{}, fmt.Errorf("author state counts: %w", err)
	}
	return counts, nil
}

// StateCountsByKeyword aggregates sources per state for one keyword. The
// keyword is normalized first; a keyword that normalizes to nothing counts
// nothing.
func (m *Manager) StateCountsByKeyword(ctx context.Context, keyword string) (db.StateCounts, error) {
	token := normalize.Keyword(keyword)
	if token == "" {
		return db.StateCounts{}, nil
	}
	counts, err := m.store.KeywordStateCounts(ctx, token)
	if err != nil {
		return db.StateCounts{}, fmt.Errorf("keyword state counts: %w", err)
	}
	return counts, nil
}
