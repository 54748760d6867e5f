package service

import (
	"context"
	"errors"
	"time"

	"github.com/quorumsec/trustd/internal/trust/domain"
	"github.com/quorumsec/trustd/internal/trust/store"
	"github.com/quorumsec/trustd/pkg/idx"
)

// Provisioner creates or refreshes local user records from provider
// identities. Provisioning is idempotent on the provider subject: repeated
// logins for the same subject update the existing record in place.
type Provisioner struct {
	Users store.Users

	// Now is the clock, overridable in tests. Defaults to time.Now.
	Now func() time.Time
}

func (p *Provisioner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Provision upserts the user for the given identity data. New users get a
// fresh ULID; existing users keep their ID and creation time while profile
// fields and roles track the provider.
func (p *Provisioner) Provision(ctx context.Context, data domain.UserData) (domain.User, error) {
	now := p.now()

	existing, err := p.Users.FindByExternalSubject(ctx, data.Subject)
	switch {
	case err == nil:
		existing.Email = data.Email
		existing.EmailVerified = data.EmailVerified
		existing.Username = data.Username
		existing.GivenName = data.GivenName
		existing.FamilyName = data.FamilyName
		existing.Roles = data.Roles
		existing.UpdatedAt = now
		return p.Users.Update(ctx, existing)

	case errors.Is(err, store.ErrNotFound):
		user := domain.User{
			ID:              idx.New().String(),
			ExternalSubject: data.Subject,
			Email:           data.Email,
			EmailVerified:   data.EmailVerified,
			Username:        data.Username,
			GivenName:       data.GivenName,
			FamilyName:      data.FamilyName,
			Roles:           data.Roles,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		created, err := p.Users.Create(ctx, user)
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost a provisioning race for the same subject; the winner's
			// record is authoritative.
			return p.Users.FindByExternalSubject(ctx, data.Subject)
		}
		return created, err

	default:
		return domain.User{}, err
	}
}
