package oidcx

import (
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Identity carries the profile claims extracted from a verified ID token.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Username      string
	GivenName     string
	FamilyName    string
	Roles         []string
	Raw           map[string]any
}

// ExtractIdentity pulls the standard profile claims out of a verified ID
// token. rolesClaim names the claim carrying the provider's role list; it may
// be a dotted path into nested objects (e.g. "realm_access.roles"). An empty
// rolesClaim skips role extraction. A missing subject is an error, everything
// else is optional.
func ExtractIdentity(token *oidc.IDToken, rolesClaim string) (Identity, error) {
	var raw map[string]any
	if err := token.Claims(&raw); err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrVerify, err)
	}

	if token.Subject == "" {
		return Identity{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	id := Identity{
		Subject:       token.Subject,
		Email:         stringClaim(raw, "email"),
		EmailVerified: boolClaim(raw, "email_verified"),
		Username:      stringClaim(raw, "preferred_username"),
		GivenName:     stringClaim(raw, "given_name"),
		FamilyName:    stringClaim(raw, "family_name"),
		Raw:           raw,
	}
	if rolesClaim != "" {
		id.Roles = rolesAtPath(raw, rolesClaim)
	}
	return id, nil
}

func stringClaim(claims map[string]any, name string) string {
	s, _ := claims[name].(string)
	return s
}

func boolClaim(claims map[string]any, name string) bool {
	b, _ := claims[name].(bool)
	return b
}

// rolesAtPath walks a dotted path through nested claim objects and returns
// the string values found at the leaf. The leaf may be a JSON array of
// strings or a single string. Any missing segment yields nil.
func rolesAtPath(claims map[string]any, path string) []string {
	var node any = claims
	for _, segment := range strings.Split(path, ".") {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node, ok = obj[segment]
		if !ok {
			return nil
		}
	}

	switch leaf := node.(type) {
	case string:
		return []string{leaf}
	case []any:
		roles := make([]string, 0, len(leaf))
		for _, v := range leaf {
			if s, ok := v.(string); ok {
				roles = append(roles, s)
			}
		}
		return roles
	default:
		return nil
	}
}
