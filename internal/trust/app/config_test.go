package app

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quorumsec/trustd/pkg/jwtx"
)

func validConfig() Config {
	return Config{
		Issuer:      "trustd-test",
		Audience:    []string{"trustd-api"},
		Algorithm:   jwtx.AlgorithmEdDSA,
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  7 * 24 * time.Hour,
		DefaultRole: "viewer",
		PolicyMode:  "off",
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing issuer", func(c *Config) { c.Issuer = "" }},
		{"missing audience", func(c *Config) { c.Audience = nil }},
		{"zero access ttl", func(c *Config) { c.AccessTTL = 0 }},
		{"negative refresh ttl", func(c *Config) { c.RefreshTTL = -time.Hour }},
		{"access not shorter than refresh", func(c *Config) { c.AccessTTL = c.RefreshTTL }},
		{"negative leeway", func(c *Config) { c.Leeway = -time.Second }},
		{"unsupported algorithm", func(c *Config) { c.Algorithm = "none" }},
		{"secret with asymmetric algorithm", func(c *Config) { c.SigningSecret = strings.Repeat("x", 32) }},
		{"short HS256 secret", func(c *Config) {
			c.Algorithm = jwtx.AlgorithmHS256
			c.SigningSecret = "too-short"
		}},
		{"provider without client id", func(c *Config) { c.OIDCIssuerURL = "https://idp.example.com" }},
		{"unknown default role", func(c *Config) { c.DefaultRole = "superuser" }},
		{"remote policy without url", func(c *Config) { c.PolicyMode = "remote" }},
		{"cedar policy without file", func(c *Config) { c.PolicyMode = "cedar" }},
		{"unknown policy mode", func(c *Config) { c.PolicyMode = "opa" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrConfig)
		})
	}

	t.Run("HS256 with strong secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.Algorithm = jwtx.AlgorithmHS256
		cfg.SigningSecret = strings.Repeat("s", 32)
		require.NoError(t, cfg.Validate())
	})
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	require.Equal(t, "trustd", cfg.Issuer)
	require.Equal(t, []string{"trustd"}, cfg.Audience)
	require.Equal(t, jwtx.AlgorithmEdDSA, cfg.Algorithm)
	require.Equal(t, jwtx.DefaultAccessTokenTTL, cfg.AccessTTL)
	require.Equal(t, jwtx.DefaultRefreshTokenTTL, cfg.RefreshTTL)
	require.True(t, cfg.TokenRotation)
	require.Equal(t, "off", cfg.PolicyMode)
	require.NoError(t, cfg.Validate())
}

func TestParseMappings(t *testing.T) {
	t.Parallel()

	require.Nil(t, parseMappings(""))
	require.Equal(t,
		map[string]string{"idp-admins": "admin", "idp-staff": "operator"},
		parseMappings("idp-admins=admin, idp-staff=operator, malformed"),
	)
}
