package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/quorumsec/trustd/pkg/cryptox"
	"github.com/quorumsec/trustd/pkg/idx"
	"github.com/quorumsec/trustd/pkg/jwtx"
)

// InitKeys builds the signing key manager from config.
//
// Key sources, in order of precedence:
//   - HS256: the configured shared secret
//   - a PEM private key file when one is configured
//   - an ephemeral key generated at startup; every outstanding token
//     becomes invalid when the process restarts
func InitKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	kid := cfg.KeyID
	if kid == "" {
		kid = idx.New().String()
	}

	pair, err := loadKeyPair(cfg, kid, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("signing key ready",
		"algorithm", pair.Algorithm(),
		"kid", pair.KID(),
	)
	return jwtx.NewKeyManager(pair)
}

func loadKeyPair(cfg Config, kid string, logger *slog.Logger) (*jwtx.KeyPair, error) {
	if cfg.Algorithm == jwtx.AlgorithmHS256 {
		return jwtx.NewKeyPairFromSecret(kid, cfg.SigningSecret)
	}

	if cfg.SigningKeyFile != "" {
		pemKey, err := os.ReadFile(cfg.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read signing key file: %w", err)
		}
		return jwtx.NewKeyPairFromPEM(cfg.Algorithm, kid, pemKey)
	}

	logger.Warn("no signing key configured, generating an ephemeral key",
		"algorithm", cfg.Algorithm,
	)
	pemKey, err := generateKey(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	return jwtx.NewKeyPairFromPEM(cfg.Algorithm, kid, pemKey)
}

func generateKey(algorithm string) ([]byte, error) {
	switch algorithm {
	case jwtx.AlgorithmRS256:
		return cryptox.GenerateRSAKey(2048)
	case jwtx.AlgorithmES256:
		return cryptox.GenerateES256Key()
	case jwtx.AlgorithmEdDSA:
		return cryptox.GenerateEd25519Key()
	default:
		return nil, fmt.Errorf("%w: cannot generate key for %q", ErrConfig, algorithm)
	}
}
