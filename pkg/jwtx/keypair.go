package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Supported JWT signing algorithms.
const (
	AlgorithmRS256 = "RS256"
	AlgorithmES256 = "ES256"
	AlgorithmEdDSA = "EdDSA"
	AlgorithmHS256 = "HS256"
)

// MinSecretLength is the minimum accepted length for an HS256 shared
// secret. Anything shorter is brute-forceable offline.
const MinSecretLength = 32

// KeyPair bundles the signing and verification material for one key,
// tagged with its algorithm and key id. For asymmetric algorithms the
// public half is derived from the private PEM; for HS256 both halves are
// the shared secret.
type KeyPair struct {
	alg    string
	kid    string
	method jwt.SigningMethod
	sign   any // *rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey, or []byte
	verify any // matching public key, or []byte for HS256
}

// NewKeyPairFromPEM loads an asymmetric key pair from private key PEM
// bytes. Handles both PKCS1 and PKCS8 encodings because otherwise we will
// be chasing a bug for longer than we would be willing to admit.
func NewKeyPairFromPEM(alg, kid string, pemKey []byte) (*KeyPair, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, fmt.Errorf("%w: invalid PEM", ErrKey)
	}

	priv, err := parsePrivateKey(block)
	if err != nil {
		return nil, err
	}

	switch alg {
	case AlgorithmRS256:
		key, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s requires an RSA private key", ErrKey, alg)
		}
		return &KeyPair{alg: alg, kid: kid, method: jwt.SigningMethodRS256, sign: key, verify: &key.PublicKey}, nil

	case AlgorithmES256:
		key, ok := priv.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s requires an ECDSA P-256 private key", ErrKey, alg)
		}
		return &KeyPair{alg: alg, kid: kid, method: jwt.SigningMethodES256, sign: key, verify: &key.PublicKey}, nil

	case AlgorithmEdDSA:
		key, ok := priv.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s requires an Ed25519 private key", ErrKey, alg)
		}
		return &KeyPair{alg: alg, kid: kid, method: jwt.SigningMethodEdDSA, sign: key, verify: key.Public().(ed25519.PublicKey)}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported algorithm %q (supported: RS256, ES256, EdDSA, HS256)", ErrConfig, alg)
	}
}

// NewKeyPairFromSecret builds an HS256 key pair from a shared secret.
// Secrets shorter than MinSecretLength are rejected.
func NewKeyPairFromSecret(kid, secret string) (*KeyPair, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d characters, got %d", ErrWeakSecret, MinSecretLength, len(secret))
	}
	raw := []byte(secret)
	return &KeyPair{alg: AlgorithmHS256, kid: kid, method: jwt.SigningMethodHS256, sign: raw, verify: raw}, nil
}

func parsePrivateKey(block *pem.Block) (any, error) {
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse PKCS1: %v", ErrKey, err)
		}
		return key, nil
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse EC: %v", ErrKey, err)
		}
		return key, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse PKCS8: %v", ErrKey, err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unsupported PEM type %q", ErrKey, block.Type)
	}
}

// Algorithm returns the signing algorithm of this pair.
func (p *KeyPair) Algorithm() string { return p.alg }

// KID returns the key identifier, used as the "kid" token header.
func (p *KeyPair) KID() string { return p.kid }

// Sign serializes and signs the claims into a compact JWT string.
func (p *KeyPair) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(p.method, claims)
	if p.kid != "" {
		t.Header["kid"] = p.kid
	}
	signed, err := t.SignedString(p.sign)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return signed, nil
}

// Decode parses the token and verifies its signature against this pair.
// Claim validation is deliberately disabled here: the token service owns
// the structural checks so that error precedence stays under its control
// and expired tokens remain decodable for revocation.
func (p *KeyPair) Decode(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{p.alg}),
		jwt.WithoutClaimsValidation(),
	)

	var claims Claims
	token, err := parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return p.verify, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, fmt.Errorf("%w: %v", ErrInvalidSig, err)
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrDecoding, err)
		}
	}
	if token == nil {
		return Claims{}, ErrDecoding
	}
	return claims, nil
}
