package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iammorganparry/clive/apps/recall/internal/models"
)

// memoryColumns is the canonical column list for all SELECT queries.
// Order must match scanMemory.
const memoryColumns = `id, owner, unit, topic, content, priority, tags, emotion,
	embedding, embedding_model, created_at`

// MemoryStore handles Memory persistence on SQLite.
type MemoryStore struct {
	db *DB
}

func NewMemoryStore(db *DB) *MemoryStore {
	return &MemoryStore{db: db}
}

// Insert stores a new memory, assigning its ID and creation time when unset.
// The owner must already exist.
func (s *MemoryStore) Insert(ctx context.Context, m *models.Memory) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().Unix()
	}

	var tags any
	if len(m.Tags) > 0 {
		b, err := json.Marshal(m.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags: %w", err)
		}
		tags = string(b)
	}

	var embedding, embeddingModel any
	if len(m.Embedding) > 0 {
		embedding = m.Embedding
		embeddingModel = m.EmbeddingModel
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (
			id, owner, unit, topic, content, priority, tags, emotion,
			embedding, embedding_model, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID, m.Owner, m.Unit, m.Topic, m.Content, m.Priority, tags, nullable(m.Emotion),
		embedding, embeddingModel, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// GetByID fetches a single memory by ID. Returns nil when it does not exist.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*models.Memory, error) {
	m, err := scanMemory(s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM memories WHERE id = ?`, memoryColumns), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	return m, nil
}

// ListByOwnerUnit returns every memory of owner within unit, oldest first.
func (s *MemoryStore) ListByOwnerUnit(ctx context.Context, owner, unit string) ([]*models.Memory, error) {
	return s.query(ctx, "list memories by owner and unit",
		fmt.Sprintf(`SELECT %s FROM memories WHERE owner = ? AND unit = ? ORDER BY created_at, rowid`, memoryColumns),
		owner, unit)
}

// ListByOwner returns every memory of owner across all units, oldest first.
func (s *MemoryStore) ListByOwner(ctx context.Context, owner string) ([]*models.Memory, error) {
	return s.query(ctx, "list memories by owner",
		fmt.Sprintf(`SELECT %s FROM memories WHERE owner = ? ORDER BY created_at, rowid`, memoryColumns),
		owner)
}

// ListByUnit returns every memory filed under unit, oldest first.
func (s *MemoryStore) ListByUnit(ctx context.Context, unit string) ([]*models.Memory, error) {
	return s.query(ctx, "list memories by unit",
		fmt.Sprintf(`SELECT %s FROM memories WHERE unit = ? ORDER BY created_at, rowid`, memoryColumns),
		unit)
}

// CountByOwner returns how many memories owner has across all units.
func (s *MemoryStore) CountByOwner(ctx context.Context, owner string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE owner = ?`, owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("count memories: %w", err)
	}
	return n, nil
}

// TopicCounts returns how many memories owner filed per topic within unit,
// most frequent first.
func (s *MemoryStore) TopicCounts(ctx context.Context, owner, unit string) ([]models.TopicCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT topic, COUNT(*) AS n FROM memories
		WHERE owner = ? AND unit = ?
		GROUP BY topic
		ORDER BY n DESC, MIN(created_at)
	`, owner, unit)
	if err != nil {
		return nil, fmt.Errorf("topic counts: %w", err)
	}
	defer rows.Close()

	var counts []models.TopicCount
	for rows.Next() {
		var c models.TopicCount
		if err := rows.Scan(&c.Topic, &c.Count); err != nil {
			return nil, fmt.Errorf("scan topic count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// insightColumns whitelists the columns TopValues may group by.
var insightColumns = map[string]bool{
	"topic":   true,
	"emotion": true,
	"owner":   true,
}

// TopValues returns the most frequent non-empty values of column among
// memories created at or after since, optionally restricted to unit.
func (s *MemoryStore) TopValues(ctx context.Context, column, unit string, since int64, limit int) ([]models.ValueCount, error) {
	if !insightColumns[column] {
		return nil, fmt.Errorf("top values: unsupported column %q", column)
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %[1]s, COUNT(*) AS n FROM memories
		WHERE created_at >= ? AND (? = '' OR unit = ?)
			AND %[1]s IS NOT NULL AND %[1]s <> ''
		GROUP BY %[1]s
		ORDER BY n DESC, %[1]s
		LIMIT ?
	`, column), since, unit, unit, limit)
	if err != nil {
		return nil, fmt.Errorf("top %s: %w", column, err)
	}
	defer rows.Close()

	var out []models.ValueCount
	for rows.Next() {
		var v models.ValueCount
		if err := rows.Scan(&v.Value, &v.Count); err != nil {
			return nil, fmt.Errorf("scan %s count: %w", column, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// OwnerValueCounts returns how many of owner's memories carry each non-empty
// value of column across all units, most frequent first. Only topic and
// emotion may be grouped on.
func (s *MemoryStore) OwnerValueCounts(ctx context.Context, owner, column string) ([]models.ValueCount, error) {
	if column != "topic" && column != "emotion" {
		return nil, fmt.Errorf("owner counts: unsupported column %q", column)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %[1]s, COUNT(*) AS n FROM memories
		WHERE owner = ? AND %[1]s IS NOT NULL AND %[1]s <> ''
		GROUP BY %[1]s
		ORDER BY n DESC, %[1]s
	`, column), owner)
	if err != nil {
		return nil, fmt.Errorf("owner %s counts: %w", column, err)
	}
	defer rows.Close()

	var out []models.ValueCount
	for rows.Next() {
		var v models.ValueCount
		if err := rows.Scan(&v.Value, &v.Count); err != nil {
			return nil, fmt.Errorf("scan %s count: %w", column, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CountSince returns how many memories were created at or after since,
// optionally restricted to unit.
func (s *MemoryStore) CountSince(ctx context.Context, unit string, since int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE created_at >= ? AND (? = '' OR unit = ?)`,
		since, unit, unit).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count recent memories: %w", err)
	}
	return n, nil
}

func (s *MemoryStore) query(ctx context.Context, op, q string, args ...any) ([]*models.Memory, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (*models.Memory, error) {
	var m models.Memory
	var priority sql.NullInt64
	var tagsJSON, emotion, embModel sql.NullString

	err := row.Scan(
		&m.ID, &m.Owner, &m.Unit, &m.Topic, &m.Content,
		&priority, &tagsJSON, &emotion,
		&m.Embedding, &embModel, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if priority.Valid {
		p := int(priority.Int64)
		m.Priority = &p
	}
	if tagsJSON.Valid {
		// Tags are advisory; a malformed value leaves them empty.
		_ = json.Unmarshal([]byte(tagsJSON.String), &m.Tags)
	}
	m.Emotion = emotion.String
	m.EmbeddingModel = embModel.String

	return &m, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
