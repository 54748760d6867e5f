package oidcx

import "errors"

var (
	ErrConfig        = errors.New("oidcx: invalid configuration")
	ErrDiscovery     = errors.New("oidcx: provider discovery failed")
	ErrStateMismatch = errors.New("oidcx: state parameter mismatch")
	ErrExchange      = errors.New("oidcx: code exchange failed")
	ErrNoIDToken     = errors.New("oidcx: token response missing id_token")
	ErrVerify        = errors.New("oidcx: id token verification failed")
	ErrNonceMissing  = errors.New("oidcx: id token missing nonce claim")
	ErrNonceMismatch = errors.New("oidcx: id token nonce mismatch")
	ErrRefresh       = errors.New("oidcx: token refresh failed")
	ErrMissingClaim  = errors.New("oidcx: required claim missing")
)
