package db

import (
	"context"
	"fmt"
)

// UserRecord is one registered author.
type UserRecord struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ListUsers returns all registered users ordered by id.
func (p *Pool) ListUsers(ctx context.Context) ([]UserRecord, error) {
	const q = `
SELECT id, name
FROM users
ORDER BY id
`
	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	items := make([]UserRecord, 0, 16)
	for rows.Next() {
		var row UserRecord
		if err := rows.Scan(&row.ID, &row.Name); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}

	return items, nil
}

// GetUser returns one user by id, or ErrNoRows.
func (p *Pool) GetUser(ctx context.Context, userID int64) (*UserRecord, error) {
	const q = `
SELECT id, name
FROM users
WHERE id = $1
`
	var row UserRecord
	if err := p.QueryRow(ctx, q, userID).Scan(&row.ID, &row.Name); err != nil {
		return nil, err
	}
	return &row, nil
}

// CreateUser registers a new author. Names are unique; a duplicate surfaces
// as a unique violation the caller can detect with IsUniqueViolation.
func (p *Pool) CreateUser(ctx context.Context, name string) (*UserRecord, error) {
	const q = `
INSERT INTO users (name)
VALUES ($1)
RETURNING id
`
	row := UserRecord{Name: name}
	if err := p.QueryRow(ctx, q, name).Scan(&row.ID); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &row, nil
}

// RenameUser changes a user's name. Returns the number of rows touched.
func (p *Pool) RenameUser(ctx context.Context, userID int64, name string) (int64, error) {
	const q = `
UPDATE users
SET name = $2
WHERE id = $1
`
	tag, err := p.Exec(ctx, q, userID, name)
	if err != nil {
		return 0, fmt.Errorf("rename user: %w", err)
	}
	return tag.RowsAffected(), nil
}
