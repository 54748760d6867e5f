package domain

import "time"

// LoginSession holds the per-login secrets minted when an authorization
// URL is generated. It is keyed by the CSRF state and consumed exactly
// once when the matching provider callback arrives; a session that cannot
// be found has either expired, been replayed, or never existed, and the
// callback is rejected in all three cases.
type LoginSession struct {
	State        string // CSRF state, also the lookup key
	PKCEVerifier string // empty when the flow does not use PKCE
	Nonce        string
	RedirectTo   string // optional post-login redirect target
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Expired reports whether the session is past its validity window.
func (s *LoginSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
