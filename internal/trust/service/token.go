package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quorumsec/trustd/internal/trust/domain"
	"github.com/quorumsec/trustd/internal/trust/store"
	"github.com/quorumsec/trustd/pkg/cryptox"
	"github.com/quorumsec/trustd/pkg/jwtx"
	"github.com/quorumsec/trustd/pkg/slogx"
)

var (
	ErrInvalidRefresh = errors.New("invalid_refresh_token")
	ErrUnknownSubject = errors.New("unknown_subject")
)

// TokenService issues, validates and rotates the service's own JWTs.
type TokenService struct {
	KeyManager *jwtx.KeyManager
	Blacklist  store.Blacklist
	Users      store.Users
	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration

	// DisableRotation keeps refresh tokens reusable until expiry instead of
	// burning them on first use.
	DisableRotation bool

	// Now is the clock, overridable in tests. Defaults to time.Now.
	Now func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Issue signs a fresh access/refresh pair for the user. The access token
// carries the user's roles and the union of role-derived and ad-hoc
// permissions; the refresh token carries neither.
func (s *TokenService) Issue(ctx context.Context, user domain.User) (*domain.TokenPair, error) {
	now := s.now()
	key := s.KeyManager.Current()

	access := jwtx.NewAccessClaims(
		user.ID,
		domain.RoleStrings(user.Roles),
		domain.PermissionSet(user.Roles, user.Permissions),
		s.AccessTTL,
		s.Issuer,
		s.Audience,
		now,
	)
	accessToken, err := key.Sign(access)
	if err != nil {
		return nil, err
	}

	refresh := jwtx.NewRefreshClaims(user.ID, s.RefreshTTL, s.Issuer, s.Audience, now)
	refreshToken, err := key.Sign(refresh)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
	}, nil
}

// Validate decodes and checks a token of the expected kind. Checks run in a
// fixed order: signature, expiry, not-before, issuer, audience, kind, then
// revocation, and the first failure is the one reported. A token signed by
// the previous key still verifies until the rotation grace period ends.
func (s *TokenService) Validate(ctx context.Context, token string, kind jwtx.TokenKind) (jwtx.Claims, error) {
	claims, err := s.decode(token)
	if err != nil {
		return jwtx.Claims{}, err
	}

	if err := claims.ValidateAt(s.now(), s.Issuer, s.Audience, s.Leeway); err != nil {
		return jwtx.Claims{}, err
	}
	if claims.Kind != kind {
		return jwtx.Claims{}, fmt.Errorf("%w: kind %q", jwtx.ErrInvalidClaim, claims.Kind)
	}

	if err := s.Blacklist.IsRevoked(ctx, claims.ID); err != nil {
		if errors.Is(err, store.ErrRevoked) {
			return jwtx.Claims{}, jwtx.ErrRevoked
		}
		return jwtx.Claims{}, err
	}

	return claims, nil
}

// Refresh rotates a refresh token: the presented token is validated, its jti
// is revoked so it can never be used again (unless rotation is disabled), and
// a fresh pair is issued with the subject's current roles. Concurrent calls
// with the same token race on the revocation write; this method revokes
// before issuing so a stale winner cannot mint a second pair.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Validate(ctx, refreshToken, jwtx.KindRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRefresh, err)
	}

	// One-time use: burn the presented token before issuing replacements.
	// Tokens without exp still validate, so the cleanup horizon falls back
	// to the refresh TTL.
	if !s.DisableRotation {
		expiresAt := s.now().Add(s.RefreshTTL)
		if claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		if err := s.Blacklist.Revoke(ctx, claims.ID, expiresAt); err != nil {
			return nil, err
		}
	}

	// Token subjects are internal user IDs, so the grant set is re-resolved
	// from the user record at rotation time, never copied forward.
	user, err := s.Users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Warn("refresh for unknown subject", "subject", claims.Subject)
			return nil, ErrUnknownSubject
		}
		return nil, err
	}
	return s.Issue(ctx, user)
}

// Revoke blacklists the token's jti until the token would have expired
// anyway. Expired and otherwise-invalid tokens still revoke as long as they
// decode, so an operator can always burn a leaked token.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	claims, err := s.decode(token)
	if err != nil {
		return err
	}

	expiresAt := s.now().Add(s.RefreshTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.Blacklist.Revoke(ctx, claims.ID, expiresAt); err != nil {
		return err
	}

	// Log a digest of the presented token, never the token itself.
	slogx.FromContext(ctx).Info("token revoked",
		"jti", claims.ID,
		"fingerprint", cryptox.FingerprintToken(token),
		"expires_at", expiresAt,
	)
	return nil
}

// decode tries the current key first, then the previous one if a rotation
// grace period is active. Only signature failures fall through to the next
// key; malformed input fails immediately.
func (s *TokenService) decode(token string) (jwtx.Claims, error) {
	keys := s.KeyManager.VerificationKeys()

	var lastErr error
	for _, key := range keys {
		claims, err := key.Decode(token)
		if err == nil {
			return claims, nil
		}
		if !errors.Is(err, jwtx.ErrInvalidSig) {
			return jwtx.Claims{}, err
		}
		lastErr = err
	}
	return jwtx.Claims{}, lastErr
}
