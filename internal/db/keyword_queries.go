package db

import (
	"context"
	"fmt"
)

// KeywordCount is one row of the keyword listing.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int64  `json:"count"`
}

// StateCounts aggregates sources per lifecycle state. Absent states stay 0.
type StateCounts struct {
	Working int64 `json:"working"`
	Done    int64 `json:"done"`
	Aborted int64 `json:"aborted"`
}

// apply records one GROUP BY row. Unknown state values are dropped rather
// than miscounted; the state column only ever holds -1, 0, or 1.
func (c *StateCounts) apply(state int, count int64) {
	switch state {
	case 0:
		c.Working = count
	case 1:
		c.Done = count
	case -1:
		c.Aborted = count
	}
}

// ListKeywordCounts lists every keyword with the number of distinct
// non-aborted sources referencing it, most used first, ties broken by token.
func (p *Pool) ListKeywordCounts(ctx context.Context) ([]KeywordCount, error) {
	const q = `
SELECT
	k.token,
	COUNT(DISTINCT sk.source_id) AS source_count
FROM keywords k
JOIN sources_keywords sk ON sk.keyword_id = k.id
JOIN sources s ON s.id = sk.source_id
WHERE s.state >= 0
GROUP BY k.token
ORDER BY source_count DESC, k.token
`
	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query keyword counts: %w", err)
	}
	defer rows.Close()

	items := make([]KeywordCount, 0, 64)
	for rows.Next() {
		var row KeywordCount
		if err := rows.Scan(&row.Keyword, &row.Count); err != nil {
			return nil, fmt.Errorf("scan keyword count row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keyword count rows: %w", err)
	}

	return items, nil
}

// KeywordStateCounts counts distinct sources per state for one canonical
// token.
func (p *Pool) KeywordStateCounts(ctx context.Context, token string) (StateCounts, error) {
	const q = `
SELECT
	s.state,
	COUNT(DISTINCT s.id)
FROM sources s
JOIN sources_keywords sk ON sk.source_id = s.id
JOIN keywords k ON k.id = sk.keyword_id
WHERE k.token = $1
GROUP BY s.state
`
	return p.scanStateCounts(ctx, q, token)
}

// TotalStateCounts counts all sources per state.
func (p *Pool) TotalStateCounts(ctx context.Context) (StateCounts, error) {
	const q = `
SELECT
	s.state,
	COUNT(s.id)
FROM sources s
GROUP BY s.state
`
	return p.scanStateCounts(ctx, q)
}

// AuthorStateCounts counts sources per state for one author.
func (p *Pool) AuthorStateCounts(ctx context.Context, authorID int64) (StateCounts, error) {
	const q = `
SELECT
	s.state,
	COUNT(s.id)
FROM sources s
WHERE s.author_id = $1
GROUP BY s.state
`
	return p.scanStateCounts(ctx, q, authorID)
}

func (p *Pool) scanStateCounts(ctx context.Context, query string, args ...any) (StateCounts, error) {
	var counts StateCounts

	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return counts, fmt.Errorf("query state counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var state int
		var count int64
		if err := rows.Scan(&state, &count); err != nil {
			return counts, fmt.Errorf("scan state count row: %w", err)
		}
		counts.apply(state, count)
	}
	if err := rows.Err(); err != nil {
		return counts, fmt.Errorf("iterate state count rows: %w", err)
	}

	return counts, nil
}
