package domain

import "time"

// User is the locally provisioned mirror of an identity-provider account,
// keyed by the provider-unique subject for idempotent provisioning.
type User struct {
	ID              string // ULID
	ExternalSubject string // provider "sub" claim
	Email           string
	EmailVerified   bool
	Username        string
	GivenName       string
	FamilyName      string
	Roles           []Role

	// Permissions are ad-hoc "{resource_type}:{action}" grants on top of
	// the role-derived sets.
	Permissions []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserData is the verified identity record extracted from a completed
// login callback: provider claims plus the mapped internal roles. It is
// handed to provisioning and never persisted in this form.
type UserData struct {
	Subject       string
	Email         string
	EmailVerified bool
	Username      string
	GivenName     string
	FamilyName    string
	Roles         []Role
}
