package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/quorumsec/trustd/internal/trust/store"
)

// Blacklist persists revoked token ids in the revoked_tokens table.
type Blacklist struct {
	db *sql.DB
}

var _ store.Blacklist = (*Blacklist)(nil)

// Revoke upserts the token id, keeping the later expiry when the id is
// already present.
func (b *Blacklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, expires_at)
		VALUES (?, ?)
		ON CONFLICT (jti) DO UPDATE SET expires_at = MAX(expires_at, excluded.expires_at)
	`, jti, expiresAt.UTC().Unix())
	return err
}

// IsRevoked reports store.ErrRevoked when the id is present.
func (b *Blacklist) IsRevoked(ctx context.Context, jti string) error {
	var one int
	err := b.db.QueryRowContext(ctx, `
		SELECT 1 FROM revoked_tokens WHERE jti = ?
	`, jti).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return nil
	case err != nil:
		return err
	default:
		return store.ErrRevoked
	}
}

// CleanupExpired deletes entries whose expiry precedes now.
func (b *Blacklist) CleanupExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := b.db.ExecContext(ctx, `
		DELETE FROM revoked_tokens WHERE expires_at < ?
	`, now.UTC().Unix())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
