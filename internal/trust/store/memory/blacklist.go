// Package memory provides in-memory implementations of the store
// interfaces, used in tests and in single-instance deployments that can
// tolerate losing revocations and pending logins on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/quorumsec/trustd/internal/trust/store"
)

// Blacklist is a mutex-guarded map of revoked token ids to their expiry.
type Blacklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewBlacklist creates an empty in-memory blacklist.
func NewBlacklist() *Blacklist {
	return &Blacklist{entries: make(map[string]time.Time)}
}

// Revoke records the id. Re-revoking extends the entry to the later
// expiry, which only ever keeps the entry around longer.
func (b *Blacklist) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.entries[jti]; ok && existing.After(expiresAt) {
		return nil
	}
	b.entries[jti] = expiresAt
	return nil
}

// IsRevoked reports store.ErrRevoked when the id is blacklisted.
func (b *Blacklist) IsRevoked(_ context.Context, jti string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, ok := b.entries[jti]; ok {
		return store.ErrRevoked
	}
	return nil
}

// CleanupExpired drops entries whose recorded expiry has passed. Expired
// entries are safe to drop because the token itself fails the expiry
// check from then on.
func (b *Blacklist) CleanupExpired(_ context.Context, now time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for jti, expiresAt := range b.entries {
		if now.After(expiresAt) {
			delete(b.entries, jti)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of live entries. Test helper.
func (b *Blacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
