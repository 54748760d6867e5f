package oidcx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRolesAtPath(t *testing.T) {
	claims := map[string]any{
		"roles": []any{"admin", "viewer"},
		"realm_access": map[string]any{
			"roles": []any{"operator", 42, "member"},
		},
		"resource_access": map[string]any{
			"trustd": map[string]any{
				"roles": []any{"viewer"},
			},
		},
		"role": "member",
		"not_roles": map[string]any{
			"roles": 7,
		},
	}

	tests := []struct {
		name string
		path string
		want []string
	}{
		{"flat array", "roles", []string{"admin", "viewer"}},
		{"nested array skips non-strings", "realm_access.roles", []string{"operator", "member"}},
		{"doubly nested", "resource_access.trustd.roles", []string{"viewer"}},
		{"single string leaf", "role", []string{"member"}},
		{"missing path", "groups", nil},
		{"missing nested segment", "realm_access.groups", nil},
		{"path through non-object", "role.roles", nil},
		{"non-string leaf", "not_roles.roles", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, rolesAtPath(claims, tt.path))
		})
	}
}
