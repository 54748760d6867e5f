package domain

import "time"

// TokenPair is what the issue and refresh operations return: a short-lived
// access token plus the refresh token that can mint the next pair.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // access token lifetime
}

// ProviderTokens are the raw tokens returned by the external identity
// provider after a code exchange or provider-side refresh.
type ProviderTokens struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	ExpiresAt    time.Time
}
