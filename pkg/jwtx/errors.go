package jwtx

import "errors"

// Token validation and key management errors. The token service relies on
// these being distinct sentinels so callers can branch with errors.Is
// instead of string matching.
var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")

	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrMissingClaim = errors.New("jwtx: missing claim")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
	ErrRevoked      = errors.New("jwtx: token revoked")

	ErrKey        = errors.New("jwtx: key error")
	ErrWeakSecret = errors.New("jwtx: shared secret too short")
	ErrEncoding   = errors.New("jwtx: encoding failed")
	ErrDecoding   = errors.New("jwtx: decoding failed")
	ErrConfig     = errors.New("jwtx: invalid configuration")
)
