// Package dedup warns about likely duplicate submissions. Detection is
// best-effort: the queries run outside any transaction, so two concurrent
// submissions of the same URL can both see no duplicate and both insert.
// The system only ever warns, it never structurally prevents duplicates.
package dedup

import (
	"context"
	"fmt"

	"github.com/innovatopia-jp/sourcedesk/internal/db"
	"github.com/innovatopia-jp/sourcedesk/internal/normalize"
	"github.com/innovatopia-jp/sourcedesk/internal/source"
)

// Store is the read surface the detector needs, implemented by *db.Pool.
type Store interface {
	URLMatch(ctx context.Context, url string, state int) (*db.SourceMatch, error)
	KeywordMatches(ctx context.Context, tokens []string, state int) ([]db.SourceMatch, error)
}

// Matches groups collision results per kind. URLMatches holds at most one
// row, the most recent exact canonical-URL hit. KeywordMatches holds one row
// per source sharing at least one token, newest first, deliberately unranked
// (ranking by match count belongs to the search path, not the duplicate
// check).
type Matches struct {
	URLMatches     []db.SourceMatch `json:"url_matches"`
	KeywordMatches []db.SourceMatch `json:"keyword_matches"`
}

// Detector checks submissions against existing sources in one lifecycle
// state. Sources marked Done or Aborted never block a new Working submission.
type Detector struct {
	store Store
}

func NewDetector(store Store) *Detector {
	return &Detector{store: store}
}

// Check looks up URL and keyword collisions for a submission. The URL is
// compared by exact string equality against stored canonical URLs; callers
// canonicalize before calling. Either probe is skipped when its input is
// empty: an empty URL issues no URL query, and candidate keywords are
// normalized here with an empty surviving set issuing no keyword query.
func (d *Detector) Check(ctx context.Context, canonicalURL string, keywords []string, state source.State) (*Matches, error) {
	matches := &Matches{
		URLMatches:     []db.SourceMatch{},
		KeywordMatches: []db.SourceMatch{},
	}

	if canonicalURL != "" {
		urlHit, err := d.store.URLMatch(ctx, canonicalURL, int(state))
		if err != nil {
			return nil, fmt.Errorf("check url collisions: %w", err)
		}
		if urlHit != nil {
			matches.URLMatches = append(matches.URLMatches, *urlHit)
		}
	}

	tokens := normalize.Keywords(keywords)
	if len(tokens) == 0 {
		return matches, nil
	}

	keywordHits, err := d.store.KeywordMatches(ctx, tokens, int(state))
	if err != nil {
		return nil, fmt.Errorf("check keyword collisions: %w", err)
	}
	matches.KeywordMatches = append(matches.KeywordMatches, keywordHits...)

	return matches, nil
}
