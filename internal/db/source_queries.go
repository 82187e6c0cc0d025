package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// maxListRows bounds every listing/search query.
const maxListRows = 1000

// SourceRecord is a source row joined with its author and full keyword set.
type SourceRecord struct {
	ID         int64     `json:"id"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Comment    string    `json:"comment"`
	ContentMD  string    `json:"content_md"`
	State      int       `json:"state"`
	UpdatedAt  time.Time `json:"updated_at"`
	Keywords   string    `json:"keywords"`
}

// SourceMatch is one duplicate-check hit: a source row annotated with the
// comma-joined sorted keyword set relevant to the match.
type SourceMatch struct {
	SourceID   int64     `json:"id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Comment    string    `json:"comment"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name"`
	UpdatedAt  time.Time `json:"updated_at"`
	Keywords   string    `json:"keywords"`
}

// SourceSearchHit is one keyword-search result with its relevance annotation.
type SourceSearchHit struct {
	SourceRecord
	MatchedKeywords string `json:"matched_keywords"`
	MatchCount      int    `json:"match_count"`
}

// CreateSourceParams carries the pre-validated inputs for CreateSource.
// Keywords must already be in canonical form.
type CreateSourceParams struct {
	URL       string
	Title     string
	AuthorID  int64
	Comment   string
	ContentMD string
	Keywords  []string
	Now       time.Time
}

// CreateSource inserts a source in Working state together with its keyword
// set in one transaction. Keyword rows are created lazily with an idempotent
// upsert, so concurrent creates introducing the same token may both attach to
// the one row that wins the insert. Any failure rolls the whole write back.
func (p *Pool) CreateSource(ctx context.Context, params CreateSourceParams) (int64, error) {
	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const insertSource = `
INSERT INTO sources (url, title, author_id, comment, content_md, state, updated_at)
VALUES ($1, $2, $3, $4, $5, 0, $6)
RETURNING id
`
	var sourceID int64
	if err := tx.QueryRow(ctx, insertSource,
		params.URL,
		params.Title,
		params.AuthorID,
		params.Comment,
		params.ContentMD,
		params.Now.UTC(),
	).Scan(&sourceID); err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}

	const upsertKeyword = `
INSERT INTO keywords (token)
VALUES ($1)
ON CONFLICT (token) DO NOTHING
`
	const selectKeyword = `
SELECT id FROM keywords WHERE token = $1
`
	const insertAssociation = `
INSERT INTO sources_keywords (source_id, keyword_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`
	for _, token := range params.Keywords {
		if _, err := tx.Exec(ctx, upsertKeyword, token); err != nil {
			return 0, fmt.Errorf("upsert keyword %q: %w", token, err)
		}
		var keywordID int64
		if err := tx.QueryRow(ctx, selectKeyword, token).Scan(&keywordID); err != nil {
			return 0, fmt.Errorf("resolve keyword %q: %w", token, err)
		}
		if _, err := tx.Exec(ctx, insertAssociation, sourceID, keywordID); err != nil {
			return 0, fmt.Errorf("link keyword %q: %w", token, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return sourceID, nil
}

// GetSource returns one source with its full keyword set, or ErrNoRows.
func (p *Pool) GetSource(ctx context.Context, sourceID int64) (*SourceRecord, error) {
	const q = `
SELECT
	s.id,
	s.url,
	s.title,
	s.author_id,
	u.name,
	s.comment,
	s.content_md,
	s.state,
	s.updated_at,
	COALESCE(string_agg(DISTINCT k.token, ',' ORDER BY k.token), '')
FROM sources s
JOIN users u ON u.id = s.author_id
LEFT JOIN sources_keywords sk ON sk.source_id = s.id
LEFT JOIN keywords k ON k.id = sk.keyword_id
WHERE s.id = $1
GROUP BY s.id, s.url, s.title, s.author_id, u.name, s.comment, s.content_md, s.state, s.updated_at
`
	var row SourceRecord
	if err := p.QueryRow(ctx, q, sourceID).Scan(
		&row.ID,
		&row.URL,
		&row.Title,
		&row.AuthorID,
		&row.AuthorName,
		&row.Comment,
		&row.ContentMD,
		&row.State,
		&row.UpdatedAt,
		&row.Keywords,
	); err != nil {
		return nil, err
	}
	return &row, nil
}

// ListSourcesByAuthor lists an author's sources in the given state, newest
// first.
func (p *Pool) ListSourcesByAuthor(ctx context.Context, authorID int64, state int) ([]SourceRecord, error) {
	const q = `
SELECT
	s.id,
	s.url,
	s.title,
	s.author_id,
	u.name,
	s.comment,
	s.content_md,
	s.state,
	s.updated_at,
	COALESCE(string_agg(DISTINCT k.token, ',' ORDER BY k.token), '')
FROM sources s
JOIN users u ON u.id = s.author_id
LEFT JOIN sources_keywords sk ON sk.source_id = s.id
LEFT JOIN keywords k ON k.id = sk.keyword_id
WHERE s.author_id = $1
  AND s.state = $2
GROUP BY s.id, s.url, s.title, s.author_id, u.name, s.comment, s.content_md, s.state, s.updated_at
ORDER BY s.id DESC
LIMIT $3
`
	rows, err := p.Query(ctx, q, authorID, state, maxListRows)
	if err != nil {
		return nil, fmt.Errorf("query sources by author: %w", err)
	}
	defer rows.Close()

	items := make([]SourceRecord, 0, 32)
	for rows.Next() {
		var row SourceRecord
		if err := rows.Scan(
			&row.ID,
			&row.URL,
			&row.Title,
			&row.AuthorID,
			&row.AuthorName,
			&row.Comment,
			&row.ContentMD,
			&row.State,
			&row.UpdatedAt,
			&row.Keywords,
		); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source rows: %w", err)
	}

	return items, nil
}

// UpdateSourceContent applies a partial title/comment/content update and
// refreshes updated_at. Nil fields are left unchanged. Returns the number of
// rows touched (0 means not found).
func (p *Pool) UpdateSourceContent(ctx context.Context, sourceID int64, title, comment, contentMD *string, now time.Time) (int64, error) {
	const q = `
UPDATE sources
SET
	title = COALESCE($2, title),
	comment = COALESCE($3, comment),
	content_md = COALESCE($4, content_md),
	updated_at = $5
WHERE id = $1
`
	tag, err := p.Exec(ctx, q, sourceID, title, comment, contentMD, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("update source content: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpdateSourceState moves a source to the given lifecycle state and
// refreshes updated_at. Returns the number of rows touched.
func (p *Pool) UpdateSourceState(ctx context.Context, sourceID int64, state int, now time.Time) (int64, error) {
	const q = `
UPDATE sources
SET
	state = $2,
	updated_at = $3
WHERE id = $1
`
	tag, err := p.Exec(ctx, q, sourceID, state, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("update source state: %w", err)
	}
	return tag.RowsAffected(), nil
}

// URLMatch returns the most recent source in the given state whose stored
// canonical URL equals url exactly, or nil when there is none. No further
// normalization happens here; callers canonicalize first.
func (p *Pool) URLMatch(ctx context.Context, url string, state int) (*SourceMatch, error) {
	const q = `
SELECT
	s.id,
	s.title,
	s.url,
	s.comment,
	s.author_id,
	u.name,
	s.updated_at,
	COALESCE(string_agg(DISTINCT k.token, ',' ORDER BY k.token), '')
FROM sources s
JOIN users u ON u.id = s.author_id
LEFT JOIN sources_keywords sk ON sk.source_id = s.id
LEFT JOIN keywords k ON k.id = sk.keyword_id
WHERE s.url = $1
  AND s.state = $2
GROUP BY s.id, s.title, s.url, s.comment, s.author_id, u.name, s.updated_at
ORDER BY s.id DESC
LIMIT 1
`
	var row SourceMatch
	err := p.QueryRow(ctx, q, url, state).Scan(
		&row.SourceID,
		&row.Title,
		&row.URL,
		&row.Comment,
		&row.AuthorID,
		&row.AuthorName,
		&row.UpdatedAt,
		&row.Keywords,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query url match: %w", err)
	}
	return &row, nil
}

// KeywordMatches returns every source in the given state sharing at least one
// of the tokens, newest first, each annotated with its comma-joined matching
// tokens. Tokens must already be canonical.
func (p *Pool) KeywordMatches(ctx context.Context, tokens []string, state int) ([]SourceMatch, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(tokens)+1)
	for _, token := range tokens {
		args = append(args, token)
	}
	args = append(args, state)

	q := `
SELECT
	s.id,
	s.title,
	s.url,
	s.comment,
	s.author_id,
	u.name,
	s.updated_at,
	string_agg(DISTINCT k.token, ',' ORDER BY k.token)
FROM sources s
JOIN users u ON u.id = s.author_id
JOIN sources_keywords sk ON sk.source_id = s.id
JOIN keywords k ON k.id = sk.keyword_id
WHERE k.token IN (` + placeholders(1, len(tokens)) + `)
  AND s.state = $` + strconv.Itoa(len(tokens)+1) + `
GROUP BY s.id, s.title, s.url, s.comment, s.author_id, u.name, s.updated_at
ORDER BY s.id DESC
LIMIT ` + strconv.Itoa(maxListRows) + `
`
	rows, err := p.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query keyword matches: %w", err)
	}
	defer rows.Close()

	items := make([]SourceMatch, 0, 8)
	for rows.Next() {
		var row SourceMatch
		if err := rows.Scan(
			&row.SourceID,
			&row.Title,
			&row.URL,
			&row.Comment,
			&row.AuthorID,
			&row.AuthorName,
			&row.UpdatedAt,
			&row.Keywords,
		); err != nil {
			return nil, fmt.Errorf("scan keyword match row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keyword match rows: %w", err)
	}

	return items, nil
}

// SearchSourcesByKeywords ranks sources in the given state by how many of the
// tokens they match, most matches first, ties broken by recency. Tokens must
// already be canonical.
func (p *Pool) SearchSourcesByKeywords(ctx context.Context, tokens []string, state int) ([]SourceSearchHit, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(tokens)+1)
	for _, token := range tokens {
		args = append(args, token)
	}
	args = append(args, state)

	q := `
SELECT
	s.id,
	s.url,
	s.title,
	s.author_id,
	u.name,
	s.comment,
	s.content_md,
	s.state,
	s.updated_at,
	string_agg(DISTINCT k.token, ',' ORDER BY k.token) AS matched_keywords,
	COUNT(DISTINCT k.token) AS match_count
FROM sources s
JOIN users u ON u.id = s.author_id
JOIN sources_keywords sk ON sk.source_id = s.id
JOIN keywords k ON k.id = sk.keyword_id
WHERE k.token IN (` + placeholders(1, len(tokens)) + `)
  AND s.state = $` + strconv.Itoa(len(tokens)+1) + `
GROUP BY s.id, s.url, s.title, s.author_id, u.name, s.comment, s.content_md, s.state, s.updated_at
ORDER BY match_count DESC, s.id DESC
LIMIT ` + strconv.Itoa(maxListRows) + `
`
	rows, err := p.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query source search: %w", err)
	}
	defer rows.Close()

	items := make([]SourceSearchHit, 0, 8)
	for rows.Next() {
		var row SourceSearchHit
		if err := rows.Scan(
			&row.ID,
			&row.URL,
			&row.Title,
			&row.AuthorID,
			&row.AuthorName,
			&row.Comment,
			&row.ContentMD,
			&row.State,
			&row.UpdatedAt,
			&row.MatchedKeywords,
			&row.MatchCount,
		); err != nil {
			return nil, fmt.Errorf("scan source search row: %w", err)
		}
		row.Keywords = row.MatchedKeywords
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source search rows: %w", err)
	}

	return items, nil
}

// placeholders renders "$start,...,$start+n-1" for IN clauses. Only the
// placeholder list is built dynamically; every value stays a bound parameter.
func placeholders(start, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(start + i))
	}
	return b.String()
}
