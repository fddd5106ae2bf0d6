package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iammorganparry/clive/apps/recall/internal/models"
)

// ErrUserExists is returned when registering a phone that is already known.
var ErrUserExists = errors.New("user already registered")

// anonymousName is used for owners created implicitly by teaching or chatting.
const anonymousName = "Anonymous"

// UserStore handles user registration and lookup.
type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Ensure registers phone as an anonymous user if it doesn't exist yet.
func (s *UserStore) Ensure(ctx context.Context, phone, unit string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (phone, name, unit, role, created_at)
		VALUES (?, ?, ?, 'user', ?)
		ON CONFLICT(phone) DO NOTHING
	`, phone, anonymousName, unit, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

// Register creates a user. Returns ErrUserExists if the phone is taken.
func (s *UserStore) Register(ctx context.Context, u *models.User) error {
	if u.Role == "" {
		u.Role = "user"
	}
	u.CreatedAt = time.Now().Unix()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (phone, name, unit, role, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(phone) DO NOTHING
	`, u.Phone, u.Name, u.Unit, u.Role, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	if n == 0 {
		return ErrUserExists
	}
	return nil
}

// Get returns a user by phone, or nil if not found.
func (s *UserStore) Get(ctx context.Context, phone string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT phone, name, unit, role, created_at
		FROM users WHERE phone = ?
	`, phone).Scan(&u.Phone, &u.Name, &u.Unit, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// Delete removes a user together with their memories and links. Reports
// whether the user existed.
func (s *UserStore) Delete(ctx context.Context, phone string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE phone = ?`, phone)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return n > 0, nil
}
