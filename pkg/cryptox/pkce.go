package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
)

// PKCEPair is a Proof Key for Code Exchange verifier/challenge pair per
// RFC 7636. The challenge travels in the authorization request; the
// verifier stays with the login session and is presented at code exchange.
type PKCEPair struct {
	Verifier  string
	Challenge string // S256 of the verifier
}

// GeneratePKCE creates a fresh verifier and its S256 challenge.
func GeneratePKCE() (PKCEPair, error) {
	verifier, err := GenerateToken(TokenSize256)
	if err != nil {
		return PKCEPair{}, err
	}
	return PKCEPair{
		Verifier:  verifier,
		Challenge: PKCEChallengeS256(verifier),
	}, nil
}

// PKCEChallengeS256 derives the S256 code challenge for a verifier.
func PKCEChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
