package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/staff-attendance/internal/web/middleware"
)

// SessionRepository stores admin sessions so logins survive a server restart.
type SessionRepository struct {
	pool *Pool
}

func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

var _ middleware.SessionRepository = (*SessionRepository)(nil)

// Save upserts a session.
func (r *SessionRepository) Save(ctx context.Context, s *middleware.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, username, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username, expires_at = EXCLUDED.expires_at`,
		s.ID, s.Username, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get returns a live session, or nil when it is unknown or expired.
func (r *SessionRepository) Get(ctx context.Context, id string) (*middleware.Session, error) {
	var s middleware.Session
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, created_at, expires_at FROM sessions WHERE id = $1 AND expires_at > NOW()`, id).
		Scan(&s.ID, &s.Username, &s.CreatedAt, &s.ExpiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM sessions WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired purges expired sessions and returns how many were removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM sessions WHERE expires_at <= NOW()")
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
