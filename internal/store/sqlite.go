package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection with initialization logic.
type DB struct {
	*sql.DB
}

// Open creates or opens the SQLite database at the given path, runs schema
// initialization, and configures WAL mode for concurrent reads.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite handles one writer at a time

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DB{db}, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			phone TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			unit TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'user',
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			unit TEXT NOT NULL,
			topic TEXT NOT NULL,
			content TEXT NOT NULL,
			priority INTEGER,
			tags TEXT,
			emotion TEXT,
			embedding BLOB,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (owner) REFERENCES users(phone) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_owner_unit ON memories(owner, unit)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_unit ON memories(unit)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at)`,
		`CREATE TABLE IF NOT EXISTS memory_links (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			weight INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			CHECK (source_id <> target_id),
			FOREIGN KEY (source_id) REFERENCES memories(id) ON DELETE CASCADE,
			FOREIGN KEY (target_id) REFERENCES memories(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_links_source ON memory_links(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_links_target ON memory_links(target_id)`,
		`CREATE TABLE IF NOT EXISTS embedding_cache (
			content_hash TEXT NOT NULL,
			model TEXT NOT NULL,
			embedding BLOB NOT NULL,
			dimension INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (content_hash, model)
		)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner TEXT NOT NULL,
			unit TEXT NOT NULL,
			input TEXT NOT NULL,
			reply TEXT NOT NULL,
			model TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (owner) REFERENCES users(phone) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_owner ON interactions(owner, created_at)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// runMigrations applies incremental schema changes that were added after the
// initial schema. Each migration is idempotent so it is safe to call on every
// database open.
func runMigrations(db *sql.DB) error {
	// v1: embeddings are tagged with the model that produced them.
	hasModel, err := columnExists(db, "memories", "embedding_model")
	if err != nil {
		return fmt.Errorf("check embedding_model column: %w", err)
	}
	if !hasModel {
		migrations := []string{
			`ALTER TABLE memories ADD COLUMN embedding_model TEXT`,
			`CREATE INDEX IF NOT EXISTS idx_memories_embedding_model ON memories(embedding_model)`,
		}
		for _, m := range migrations {
			if _, err := db.Exec(m); err != nil {
				return fmt.Errorf("run migration v1: %w", err)
			}
		}
	}
	return nil
}

// MemoryCount returns the total number of stored memories.
func (db *DB) MemoryCount(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memories").Scan(&count)
	return count, err
}

// columnExists checks if a column exists in a table. It properly closes the
// rows cursor before returning, avoiding deadlocks with MaxOpenConns(1).
func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(
		fmt.Sprintf("SELECT name FROM pragma_table_info('%s') WHERE name = ?", table),
		column,
	)
	if err != nil {
		return false, err
	}
	found := rows.Next()
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}
	return found, nil
}
