package store

import (
	"context"
	"fmt"
	"time"

	"github.com/iammorganparry/clive/apps/recall/internal/models"
)

// LinkStore handles memory_links persistence on SQLite. Links are append-only;
// the same ordered pair may be linked more than once.
type LinkStore struct {
	db *DB
}

func NewLinkStore(db *DB) *LinkStore {
	return &LinkStore{db: db}
}

// Insert appends a link and fills in its ID and creation time.
func (s *LinkStore) Insert(ctx context.Context, l *models.MemoryLink) error {
	if l.CreatedAt == 0 {
		l.CreatedAt = time.Now().Unix()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_links (source_id, target_id, kind, weight, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, l.SourceID, l.TargetID, l.Kind, l.Weight, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	l.ID = id
	return nil
}

// ListFrom returns outgoing links of the given memory, strongest first.
func (s *LinkStore) ListFrom(ctx context.Context, id string) ([]models.MemoryLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_id, target_id, kind, weight, created_at
		FROM memory_links
		WHERE source_id = ?
		ORDER BY weight DESC, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var links []models.MemoryLink
	for rows.Next() {
		var l models.MemoryLink
		if err := rows.Scan(&l.ID, &l.SourceID, &l.TargetID, &l.Kind, &l.Weight, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
