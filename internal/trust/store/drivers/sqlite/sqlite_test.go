package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/quorumsec/trustd/internal/trust/domain"
	"github.com/quorumsec/trustd/internal/trust/store"
	"github.com/quorumsec/trustd/internal/trust/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "trust.db"))
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBlacklist_RoundTrip(t *testing.T) {
	ctx := context.Background()
	bl := newTestStore(t).Blacklist()
	now := time.Now().UTC()

	require.NoError(t, bl.IsRevoked(ctx, "jti-1"))

	require.NoError(t, bl.Revoke(ctx, "jti-1", now.Add(time.Hour)))
	require.ErrorIs(t, bl.IsRevoked(ctx, "jti-1"), store.ErrRevoked)

	// Idempotent, keeps the later expiry
	require.NoError(t, bl.Revoke(ctx, "jti-1", now.Add(time.Minute)))
	removed, err := bl.CleanupExpired(ctx, now.Add(30*time.Minute))
	require.NoError(t, err)
	require.Zero(t, removed)
	require.ErrorIs(t, bl.IsRevoked(ctx, "jti-1"), store.ErrRevoked)
}

func TestBlacklist_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	bl := newTestStore(t).Blacklist()
	now := time.Now().UTC()

	require.NoError(t, bl.Revoke(ctx, "dead", now.Add(-time.Minute)))
	require.NoError(t, bl.Revoke(ctx, "live", now.Add(time.Hour)))

	removed, err := bl.CleanupExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.NoError(t, bl.IsRevoked(ctx, "dead"))
	require.ErrorIs(t, bl.IsRevoked(ctx, "live"), store.ErrRevoked)
}

func TestSessions_PutConsume(t *testing.T) {
	ctx := context.Background()
	sessions := newTestStore(t).Sessions()
	now := time.Now().UTC().Truncate(time.Second)

	session := domain.LoginSession{
		State:        "state-1",
		PKCEVerifier: "verifier",
		Nonce:        "nonce",
		RedirectTo:   "/home",
		CreatedAt:    now,
		ExpiresAt:    now.Add(10 * time.Minute),
	}
	require.NoError(t, sessions.Put(ctx, session))
	require.ErrorIs(t, sessions.Put(ctx, session), store.ErrAlreadyExists)

	got, err := sessions.Consume(ctx, "state-1")
	require.NoError(t, err)
	require.Equal(t, session.State, got.State)
	require.Equal(t, session.PKCEVerifier, got.PKCEVerifier)
	require.Equal(t, session.Nonce, got.Nonce)
	require.Equal(t, session.RedirectTo, got.RedirectTo)
	require.True(t, session.CreatedAt.Equal(got.CreatedAt))
	require.True(t, session.ExpiresAt.Equal(got.ExpiresAt))

	_, err = sessions.Consume(ctx, "state-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessions_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	sessions := newTestStore(t).Sessions()
	now := time.Now().UTC()

	require.NoError(t, sessions.Put(ctx, domain.LoginSession{
		State: "stale", CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute),
	}))
	require.NoError(t, sessions.Put(ctx, domain.LoginSession{
		State: "live", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	removed, err := sessions.CleanupExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = sessions.Consume(ctx, "stale")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = sessions.Consume(ctx, "live")
	require.NoError(t, err)
}
