package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iammorganparry/clive/apps/recall/internal/models"
)

// UsageStore records answered messages in the interactions table. Rows go
// away with their owner.
type UsageStore struct {
	db *DB
}

func NewUsageStore(db *DB) *UsageStore {
	return &UsageStore{db: db}
}

// Insert appends an interaction and fills in its ID and creation time.
func (s *UsageStore) Insert(ctx context.Context, in *models.Interaction) error {
	if in.CreatedAt == 0 {
		in.CreatedAt = time.Now().Unix()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO interactions (owner, unit, input, reply, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, in.Owner, in.Unit, in.Input, in.Reply, in.Model, in.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	in.ID = id
	return nil
}

// ListByOwner returns owner's most recent interactions, newest first.
func (s *UsageStore) ListByOwner(ctx context.Context, owner string, limit int) ([]models.Interaction, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, unit, input, reply, model, created_at
		FROM interactions
		WHERE owner = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []models.Interaction
	for rows.Next() {
		var in models.Interaction
		if err := rows.Scan(&in.ID, &in.Owner, &in.Unit, &in.Input, &in.Reply, &in.Model, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// Stats returns how many interactions owner has and when the latest one
// happened. last is zero when there are none.
func (s *UsageStore) Stats(ctx context.Context, owner string) (count int, last int64, err error) {
	var latest sql.NullInt64
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(created_at) FROM interactions WHERE owner = ?`, owner).
		Scan(&count, &latest)
	if err != nil {
		return 0, 0, fmt.Errorf("interaction stats: %w", err)
	}
	return count, latest.Int64, nil
}
