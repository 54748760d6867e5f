package store

import (
	"context"
	"errors"
	"time"

	"github.com/quorumsec/trustd/internal/trust/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrRevoked signals that a token id is present in the blacklist. It is
	// an error, not a boolean, so call sites cannot forget to treat it as
	// part of the validation chain.
	ErrRevoked = errors.New("store: token revoked")
)

// Blacklist tracks revoked token identifiers until their natural expiry.
// Entries are only ever inserted or removed, never mutated, so concurrent
// revokes, lookups, and cleanup passes are safe against each other.
type Blacklist interface {
	// Revoke records the token id until expiresAt. Revoking an id twice is
	// harmless.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error

	// IsRevoked returns nil when the id is not blacklisted and ErrRevoked
	// when it is. Any other error is a store failure.
	IsRevoked(ctx context.Context, jti string) error

	// CleanupExpired removes entries whose expiry is before now and returns
	// the count removed. Meant for periodic invocation, not per-request.
	CleanupExpired(ctx context.Context, now time.Time) (int, error)
}

// Sessions stores pending login sessions keyed by their CSRF state.
type Sessions interface {
	// Put stores a new session. The state must be unique.
	Put(ctx context.Context, session domain.LoginSession) error

	// Consume atomically removes and returns the session for the given
	// state. Exactly one of two concurrent callers for the same state
	// succeeds; the other gets ErrNotFound. This closes the callback
	// replay race by construction.
	Consume(ctx context.Context, state string) (domain.LoginSession, error)

	// CleanupExpired removes sessions whose expiry is before now and
	// returns the count removed.
	CleanupExpired(ctx context.Context, now time.Time) (int, error)
}

// Users is the external user store consumed by provisioning, keyed by
// identity-provider subject.
type Users interface {
	FindByID(ctx context.Context, id string) (domain.User, error)
	FindByExternalSubject(ctx context.Context, subject string) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	Update(ctx context.Context, user domain.User) (domain.User, error)
}
