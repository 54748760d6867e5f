package service

import (
	"fmt"
	"strings"

	"github.com/quorumsec/trustd/internal/trust/domain"
)

// RoleMapper translates identity-provider role names into the closed local
// role set. Matching is case-insensitive. Provider roles with no mapping and
// no direct name match are ignored; a user who ends up with no roles at all
// gets the default role.
type RoleMapper struct {
	mappings map[string]domain.Role
	fallback domain.Role
}

// NewRoleMapper builds a mapper from provider-role to local-role names. Every
// mapping target and the fallback must name a valid role.
func NewRoleMapper(mappings map[string]string, fallback domain.Role) (*RoleMapper, error) {
	if !fallback.Valid() {
		return nil, fmt.Errorf("%w: default role %q", ErrConfigInvalid, fallback)
	}

	normalized := make(map[string]domain.Role, len(mappings))
	for from, to := range mappings {
		role := domain.Role(strings.ToLower(to))
		if !role.Valid() {
			return nil, fmt.Errorf("%w: role mapping %q -> %q", ErrConfigInvalid, from, to)
		}
		normalized[strings.ToLower(from)] = role
	}

	return &RoleMapper{mappings: normalized, fallback: fallback}, nil
}

// Map resolves provider roles to local roles, preserving first-seen order
// and dropping duplicates.
func (m *RoleMapper) Map(providerRoles []string) []domain.Role {
	seen := make(map[domain.Role]struct{}, len(providerRoles))
	var roles []domain.Role

	add := func(role domain.Role) {
		if _, ok := seen[role]; ok {
			return
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}

	for _, name := range providerRoles {
		key := strings.ToLower(name)
		if role, ok := m.mappings[key]; ok {
			add(role)
			continue
		}
		if role := domain.Role(key); role.Valid() {
			add(role)
		}
	}

	if len(roles) == 0 {
		roles = []domain.Role{m.fallback}
	}
	return roles
}
