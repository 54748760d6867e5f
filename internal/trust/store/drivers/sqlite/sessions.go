package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/quorumsec/trustd/internal/trust/domain"
	"github.com/quorumsec/trustd/internal/trust/store"

	sqlitelib "modernc.org/sqlite"
	sqlitelib3 "modernc.org/sqlite/lib"
)

// Sessions persists pending login sessions in the login_sessions table.
type Sessions struct {
	db *sql.DB
}

var _ store.Sessions = (*Sessions)(nil)

func (s *Sessions) Put(ctx context.Context, session domain.LoginSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO login_sessions (state, pkce_verifier, nonce, redirect_to, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		session.State,
		session.PKCEVerifier,
		session.Nonce,
		session.RedirectTo,
		session.CreatedAt.UTC().Unix(),
		session.ExpiresAt.UTC().Unix(),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// Consume removes and returns the session in a single statement using
// DELETE ... RETURNING, so two concurrent callbacks for the same state
// race on the row delete and only one gets it back.
func (s *Sessions) Consume(ctx context.Context, state string) (domain.LoginSession, error) {
	var (
		session   domain.LoginSession
		createdAt int64
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM login_sessions WHERE state = ?
		RETURNING state, pkce_verifier, nonce, redirect_to, created_at, expires_at
	`, state).Scan(
		&session.State,
		&session.PKCEVerifier,
		&session.Nonce,
		&session.RedirectTo,
		&createdAt,
		&expiresAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.LoginSession{}, store.ErrNotFound
	case err != nil:
		return domain.LoginSession{}, err
	}

	session.CreatedAt = time.Unix(createdAt, 0).UTC()
	session.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return session, nil
}

func (s *Sessions) CleanupExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM login_sessions WHERE expires_at < ?
	`, now.UTC().Unix())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func isUniqueViolation(err error) bool {
	var serr *sqlitelib.Error
	if errors.As(err, &serr) {
		code := serr.Code()
		return code == sqlitelib3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			code == sqlitelib3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
