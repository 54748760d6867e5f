package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quorumsec/trustd/internal/trust/domain"
	"github.com/quorumsec/trustd/internal/trust/store"
	"github.com/quorumsec/trustd/pkg/oidcx"
	"github.com/quorumsec/trustd/pkg/slogx"
)

const DefaultLoginSessionTTL = 10 * time.Minute

var (
	ErrConfigInvalid  = errors.New("invalid_config")
	ErrInvalidSession = errors.New("invalid_login_session")
	ErrSessionExpired = errors.New("login_session_expired")
	ErrProviderDenied = errors.New("provider_denied")
)

// OIDCClient is the slice of the provider client the login flow needs.
type OIDCClient interface {
	BeginAuth() (oidcx.AuthRequest, error)
	ExchangeCode(ctx context.Context, code, returnedState, expectedState, pkceVerifier, nonce string) (oidcx.Tokens, oidcx.Identity, error)
}

// LoginResult is everything the callback handler needs after a completed
// login: the issued pair, the provider's own token set, the provisioned
// user and where to send them.
type LoginResult struct {
	Tokens         *domain.TokenPair
	ProviderTokens domain.ProviderTokens
	User           domain.User
	RedirectTo     string
}

// LoginService drives the authorization-code login flow against the
// upstream identity provider.
type LoginService struct {
	Provider    OIDCClient
	Sessions    store.Sessions
	Roles       *RoleMapper
	Provisioner *Provisioner
	Tokens      *TokenService
	SessionTTL  time.Duration

	// Now is the clock, overridable in tests. Defaults to time.Now.
	Now func() time.Time
}

func (s *LoginService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *LoginService) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return DefaultLoginSessionTTL
}

// BeginLogin creates a pending login session and returns the provider URL to
// redirect the user to. State, nonce and PKCE material are fresh per call
// and live only server-side.
func (s *LoginService) BeginLogin(ctx context.Context, redirectTo string) (string, error) {
	req, err := s.Provider.BeginAuth()
	if err != nil {
		return "", err
	}

	now := s.now()
	err = s.Sessions.Put(ctx, domain.LoginSession{
		State:        req.State,
		PKCEVerifier: req.PKCEVerifier,
		Nonce:        req.Nonce,
		RedirectTo:   redirectTo,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.sessionTTL()),
	})
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// CompleteLogin finishes the flow from the provider callback. The session is
// consumed first, so whatever else happens the state can never be replayed;
// of two concurrent callbacks with the same state exactly one proceeds.
// providerErr carries the provider's error query parameter, if any.
func (s *LoginService) CompleteLogin(ctx context.Context, state, code, providerErr string) (*LoginResult, error) {
	l := slogx.FromContext(ctx)

	session, err := s.Sessions.Consume(ctx, state)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	if providerErr != "" {
		l.Info("provider rejected login", "error", providerErr)
		return nil, fmt.Errorf("%w: %s", ErrProviderDenied, providerErr)
	}
	if session.Expired(s.now()) {
		return nil, ErrSessionExpired
	}

	providerTokens, identity, err := s.Provider.ExchangeCode(
		ctx, code, state, session.State, session.PKCEVerifier, session.Nonce)
	if err != nil {
		return nil, err
	}

	username := identity.Username
	if username == "" {
		username = identity.Email
	}
	if username == "" {
		return nil, fmt.Errorf("%w: preferred_username", oidcx.ErrMissingClaim)
	}

	user, err := s.Provisioner.Provision(ctx, domain.UserData{
		Subject:       identity.Subject,
		Email:         identity.Email,
		EmailVerified: identity.EmailVerified,
		Username:      username,
		GivenName:     identity.GivenName,
		FamilyName:    identity.FamilyName,
		Roles:         s.Roles.Map(identity.Roles),
	})
	if err != nil {
		return nil, err
	}

	pair, err := s.Tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	l.Info("login completed",
		"user_id", user.ID,
		"subject", user.ExternalSubject,
		"roles", domain.RoleStrings(user.Roles),
	)
	return &LoginResult{
		Tokens: pair,
		ProviderTokens: domain.ProviderTokens{
			AccessToken:  providerTokens.AccessToken,
			RefreshToken: providerTokens.RefreshToken,
			IDToken:      providerTokens.IDToken,
			ExpiresAt:    providerTokens.ExpiresAt,
		},
		User:       user,
		RedirectTo: session.RedirectTo,
	}, nil
}
