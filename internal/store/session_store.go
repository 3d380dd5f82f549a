package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vbonduro/ecosort/internal/domain"
)

// SessionStore persists signed-in sessions: the upstream tokens plus the
// claims decoded from the access token.
type SessionStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

func (s *SessionStore) Create(ctx context.Context, sess *domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, access_token, refresh_token, first_name, last_name, email, role, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.AccessToken, sess.RefreshToken,
		sess.Claims.FirstName, sess.Claims.LastName, sess.Claims.Email, sess.Claims.Role,
		sess.CreatedAt.Unix(), sess.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get returns the session with id, or nil when it does not exist or has
// expired.
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	sess := &domain.Session{}
	var created, expires int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, access_token, refresh_token, first_name, last_name, email, role, created_at, expires_at
		FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.AccessToken, &sess.RefreshToken,
		&sess.Claims.FirstName, &sess.Claims.LastName, &sess.Claims.Email, &sess.Claims.Role,
		&created, &expires)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	sess.CreatedAt = time.Unix(created, 0)
	sess.ExpiresAt = time.Unix(expires, 0)
	if sess.Expired(s.now()) {
		return nil, nil
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every session past its expiry and reports how many
// were removed.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
