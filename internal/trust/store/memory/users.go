package memory

import (
	"context"
	"sync"

	"github.com/quorumsec/trustd/internal/trust/domain"
	"github.com/quorumsec/trustd/internal/trust/store"
)

// Users is an in-memory user store keyed by identity-provider subject.
type Users struct {
	mu        sync.RWMutex
	bySubject map[string]domain.User
	byID      map[string]string // id -> subject
}

// NewUsers creates an empty in-memory user store.
func NewUsers() *Users {
	return &Users{
		bySubject: make(map[string]domain.User),
		byID:      make(map[string]string),
	}
}

func (u *Users) FindByID(_ context.Context, id string) (domain.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	subject, ok := u.byID[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u.bySubject[subject], nil
}

func (u *Users) FindByExternalSubject(_ context.Context, subject string) (domain.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	user, ok := u.bySubject[subject]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return user, nil
}

func (u *Users) Create(_ context.Context, user domain.User) (domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.bySubject[user.ExternalSubject]; ok {
		return domain.User{}, store.ErrAlreadyExists
	}
	u.bySubject[user.ExternalSubject] = user
	u.byID[user.ID] = user.ExternalSubject
	return user, nil
}

func (u *Users) Update(_ context.Context, user domain.User) (domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.bySubject[user.ExternalSubject]; !ok {
		return domain.User{}, store.ErrNotFound
	}
	u.bySubject[user.ExternalSubject] = user
	return user, nil
}
