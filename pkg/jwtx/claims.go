package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants. Short access tokens limit the window of a
// leaked bearer token; the refresh TTL trades that off against how often
// users are bounced back through the identity provider.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenKind distinguishes access tokens from refresh tokens. The refresh
// endpoint rejects anything that isn't KindRefresh, so an access token can
// never be replayed to mint a new pair.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims is the signed token payload. Keep changes additive: tokens issued
// by older instances must keep decoding during a rolling deploy.
type Claims struct {
	jwt.RegisteredClaims

	// Roles the subject holds, e.g. ["admin", "member"].
	Roles []string `json:"roles,omitempty"`

	// Permissions granted to the subject, formatted as
	// "{resource_type}:{action}": the role-derived sets plus any ad-hoc
	// grants.
	Permissions []string `json:"perms,omitempty"`

	// Kind marks the token as access or refresh.
	Kind TokenKind `json:"kind,omitempty"`
}

// NewAccessClaims builds claims for a short-lived access token. The access
// token carries the full role and permission set so the authorization
// engine never needs a user lookup on the hot path.
func NewAccessClaims(
	subject string,
	roles, permissions []string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Roles:       roles,
		Permissions: permissions,
		Kind:        KindAccess,
	}
}

// NewRefreshClaims builds claims for a refresh token. Refresh tokens carry
// no roles or permissions; if one leaks, the holder gets nothing until it
// passes through the refresh endpoint, which re-resolves the grant set.
func NewRefreshClaims(
	subject string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Kind: KindRefresh,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. 160 bits
// of entropy so revocation entries never collide.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateAt runs the structural claim checks in protocol order: expiry,
// not-before, issuer, audience. The first failing check wins, so a token
// that is both expired and mis-issued always reports ErrExpired.
func (c *Claims) ValidateAt(now time.Time, issuer string, audience []string, leeway time.Duration) error {
	if err := c.ValidateExpiryAt(now, leeway); err != nil {
		return err
	}
	if err := c.ValidateIssuer(issuer); err != nil {
		return err
	}
	return c.ValidateAudience(audience)
}

// ValidateExpiryAt ensures the token hasn't expired (exp) and isn't used
// before it becomes valid (nbf), allowing leeway for clock skew.
func (c *Claims) ValidateExpiryAt(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}

// ValidateIssuer checks if the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}
