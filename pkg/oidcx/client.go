package oidcx

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/quorumsec/trustd/pkg/cryptox"
)

var defaultScopes = []string{oidc.ScopeOpenID, "profile", "email"}

// Config describes the upstream identity provider. Discovery runs against
// IssuerURL at client construction and any failure there is fatal.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// RolesClaim names the ID token claim carrying provider roles. Dotted
	// paths descend into nested objects ("realm_access.roles"). Optional.
	RolesClaim string

	// HTTPClient overrides the client used for discovery, JWKS fetches and
	// token endpoint calls. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

func (c Config) validate() error {
	if c.IssuerURL == "" {
		return fmt.Errorf("%w: issuer url is required", ErrConfig)
	}
	if c.ClientID == "" {
		return fmt.Errorf("%w: client id is required", ErrConfig)
	}
	if c.RedirectURL == "" {
		return fmt.Errorf("%w: redirect url is required", ErrConfig)
	}
	return nil
}

// AuthRequest holds everything the caller must persist server-side before
// redirecting the user: the URL to send them to and the secrets to check the
// callback against.
type AuthRequest struct {
	URL          string
	State        string
	Nonce        string
	PKCEVerifier string
}

// Tokens is the provider token set returned by code exchange or refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	ExpiresAt    time.Time
}

// Client talks to a single OIDC provider. Safe for concurrent use.
type Client struct {
	cfg      Config
	oauth    oauth2.Config
	verifier *oidc.IDTokenVerifier
	http     *http.Client
}

// NewClient discovers the provider's endpoints and signing keys. The issuer
// must serve /.well-known/openid-configuration.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	if !slices.Contains(scopes, oidc.ScopeOpenID) {
		return nil, fmt.Errorf("%w: scope %q is required", ErrConfig, oidc.ScopeOpenID)
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}

	return &Client{
		cfg: cfg,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     provider.Endpoint(),
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		http:     httpClient,
	}, nil
}

// BeginAuth generates fresh state, nonce and PKCE material and builds the
// authorization URL. Each call produces an independent request.
func (c *Client) BeginAuth() (AuthRequest, error) {
	state, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return AuthRequest{}, err
	}
	nonce, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return AuthRequest{}, err
	}
	pkce, err := cryptox.GeneratePKCE()
	if err != nil {
		return AuthRequest{}, err
	}

	url := c.oauth.AuthCodeURL(state,
		oauth2.S256ChallengeOption(pkce.Verifier),
		oidc.Nonce(nonce),
	)
	return AuthRequest{
		URL:          url,
		State:        state,
		Nonce:        nonce,
		PKCEVerifier: pkce.Verifier,
	}, nil
}

// ExchangeCode redeems an authorization code for provider tokens and a
// verified identity. The state comparison happens before any network call so
// a forged callback never reaches the token endpoint. The ID token must be
// present and its nonce must match the one issued at BeginAuth.
func (c *Client) ExchangeCode(
	ctx context.Context, code, returnedState, expectedState, pkceVerifier, nonce string,
) (Tokens, Identity, error) {
	if subtle.ConstantTimeCompare([]byte(returnedState), []byte(expectedState)) != 1 {
		return Tokens{}, Identity{}, ErrStateMismatch
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	token, err := c.oauth.Exchange(ctx, code, oauth2.VerifierOption(pkceVerifier))
	if err != nil {
		return Tokens{}, Identity{}, fmt.Errorf("%w: %w", ErrExchange, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return Tokens{}, Identity{}, ErrNoIDToken
	}

	idToken, err := c.verifyIDToken(ctx, rawIDToken, nonce)
	if err != nil {
		return Tokens{}, Identity{}, err
	}

	identity, err := ExtractIdentity(idToken, c.cfg.RolesClaim)
	if err != nil {
		return Tokens{}, Identity{}, err
	}
	return tokensFrom(token, rawIDToken), identity, nil
}

// Refresh redeems a provider refresh token for a new token set. If the
// response carries an ID token it is verified and the identity is
// re-extracted from it; no nonce is expected on refresh responses. Without
// an ID token the returned identity is zero-valued.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Tokens, Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	source := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := source.Token()
	if err != nil {
		return Tokens{}, Identity{}, fmt.Errorf("%w: %w", ErrRefresh, err)
	}

	var identity Identity
	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken != "" {
		idToken, err := c.verifyIDToken(ctx, rawIDToken, "")
		if err != nil {
			return Tokens{}, Identity{}, err
		}
		identity, err = ExtractIdentity(idToken, c.cfg.RolesClaim)
		if err != nil {
			return Tokens{}, Identity{}, err
		}
	}
	return tokensFrom(token, rawIDToken), identity, nil
}

func (c *Client) verifyIDToken(ctx context.Context, rawIDToken, nonce string) (*oidc.IDToken, error) {
	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVerify, err)
	}
	if nonce != "" {
		if idToken.Nonce == "" {
			return nil, ErrNonceMissing
		}
		if idToken.Nonce != nonce {
			return nil, ErrNonceMismatch
		}
	}
	return idToken, nil
}

func tokensFrom(token *oauth2.Token, rawIDToken string) Tokens {
	return Tokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IDToken:      rawIDToken,
		ExpiresAt:    token.Expiry,
	}
}
