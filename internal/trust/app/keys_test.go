package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quorumsec/trustd/pkg/cryptox"
	"github.com/quorumsec/trustd/pkg/jwtx"
)

func TestInitKeys_Ephemeral(t *testing.T) {
	for _, alg := range []string{jwtx.AlgorithmRS256, jwtx.AlgorithmES256, jwtx.AlgorithmEdDSA} {
		t.Run(alg, func(t *testing.T) {
			cfg := validConfig()
			cfg.Algorithm = alg

			km, err := InitKeys(cfg, slog.Default())
			require.NoError(t, err)
			require.Equal(t, alg, km.Current().Algorithm())
			require.NotEmpty(t, km.Current().KID())
		})
	}
}

func TestInitKeys_SharedSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Algorithm = jwtx.AlgorithmHS256
	cfg.SigningSecret = strings.Repeat("s", 32)
	cfg.KeyID = "hs-key-1"

	km, err := InitKeys(cfg, slog.Default())
	require.NoError(t, err)
	require.Equal(t, "hs-key-1", km.Current().KID())
}

func TestInitKeys_FromPEMFile(t *testing.T) {
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "signing.pem")
	require.NoError(t, os.WriteFile(path, pemKey, 0o600))

	cfg := validConfig()
	cfg.SigningKeyFile = path

	km, err := InitKeys(cfg, slog.Default())
	require.NoError(t, err)
	require.Equal(t, jwtx.AlgorithmEdDSA, km.Current().Algorithm())
}

func TestInitKeys_MissingFile(t *testing.T) {
	cfg := validConfig()
	cfg.SigningKeyFile = filepath.Join(t.TempDir(), "absent.pem")

	_, err := InitKeys(cfg, slog.Default())
	require.Error(t, err)
}
