package cryptox_test

import (
	"testing"

	"github.com/quorumsec/trustd/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGeneratePKCE(t *testing.T) {
	pair, err := cryptox.GeneratePKCE()
	require.NoError(t, err)
	require.NotEmpty(t, pair.Verifier)
	require.NotEmpty(t, pair.Challenge)
	require.NotEqual(t, pair.Verifier, pair.Challenge)

	// Challenge must be the S256 derivation of the verifier
	require.Equal(t, cryptox.PKCEChallengeS256(pair.Verifier), pair.Challenge)

	// Two pairs must never collide
	pair2, err := cryptox.GeneratePKCE()
	require.NoError(t, err)
	require.NotEqual(t, pair.Verifier, pair2.Verifier)
}

func TestFingerprintToken(t *testing.T) {
	fp1 := cryptox.FingerprintToken("some-token")
	fp2 := cryptox.FingerprintToken("some-token")
	fp3 := cryptox.FingerprintToken("other-token")

	require.Equal(t, fp1, fp2, "fingerprints must be deterministic")
	require.NotEqual(t, fp1, fp3)
	require.NotContains(t, fp1, "some-token")
}

func TestGenerateToken(t *testing.T) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	require.NoError(t, err)
	require.Len(t, token, 22) // 16 bytes base64url, no padding

	_, err = cryptox.GenerateToken(0)
	require.Error(t, err)

	_, err = cryptox.GenerateToken(-4)
	require.Error(t, err)
}
