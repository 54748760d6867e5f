package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quorumsec/trustd/internal/trust/domain"
	"github.com/quorumsec/trustd/internal/trust/store"
	"github.com/quorumsec/trustd/internal/trust/store/memory"
)

func TestHousekeepingService_CleansOnStart(t *testing.T) {
	ctx := context.Background()
	blacklist := memory.NewBlacklist()
	sessions := memory.NewSessions()
	past := time.Now().Add(-time.Hour)

	require.NoError(t, blacklist.Revoke(ctx, "stale-jti", past))
	require.NoError(t, blacklist.Revoke(ctx, "live-jti", time.Now().Add(time.Hour)))
	require.NoError(t, sessions.Put(ctx, domain.LoginSession{State: "stale", ExpiresAt: past}))

	svc := NewHousekeepingService(blacklist, sessions, slog.Default(), time.Hour)
	svc.Start()
	svc.Stop()

	require.NoError(t, blacklist.IsRevoked(ctx, "stale-jti"))
	require.ErrorIs(t, blacklist.IsRevoked(ctx, "live-jti"), store.ErrRevoked)
	_, err := sessions.Consume(ctx, "stale")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestHousekeepingService_DefaultInterval(t *testing.T) {
	svc := NewHousekeepingService(memory.NewBlacklist(), memory.NewSessions(), slog.Default(), 0)
	require.Equal(t, 15*time.Minute, svc.Interval)
}
