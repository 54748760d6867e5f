package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quorumsec/trustd/internal/trust/domain"
	"github.com/quorumsec/trustd/pkg/jwtx"
)

var ErrConfig = errors.New("app: invalid configuration")

type Config struct {
	Issuer   string   // Required: issuer claim for minted tokens
	Audience []string // Required: audience claim for minted tokens

	Algorithm      string        // Signing algorithm (RS256, ES256, EdDSA, HS256) (default: EdDSA)
	SigningKeyFile string        // Optional: PEM private key path; empty means ephemeral keys
	SigningSecret  string        // Required for HS256, min 32 bytes
	KeyID          string        // Optional: kid header; defaults to a generated id
	AccessTTL      time.Duration // Access token lifetime (default: 15m)
	RefreshTTL     time.Duration // Refresh token lifetime (default: 168h)
	Leeway         time.Duration // Clock skew tolerance for validation (default: 30s)
	TokenRotation  bool          // Single-use refresh tokens (default: true)

	DatabaseFile string // SQLite database path (default: ./trustd.db)

	// Upstream identity provider. Empty OIDCIssuerURL disables the login
	// flow; token issuing and authorization still run.
	OIDCIssuerURL    string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string
	OIDCScopes       []string
	OIDCRolesClaim   string            // claim path carrying provider roles (default: roles)
	RoleMappings     map[string]string // provider role -> local role
	DefaultRole      string            // role for users with no mapped roles (default: viewer)
	SessionTTL       time.Duration     // pending login session lifetime (default: 10m)

	// Policy engine selection: "remote" posts to PolicyURL, "cedar" loads
	// CedarPolicyFile in-process, "off" uses the local fallback rule only.
	PolicyMode      string
	PolicyURL       string
	PolicyTimeout   time.Duration // remote evaluation bound (default: 500ms)
	CedarPolicyFile string

	Env                  string // Environment (dev, staging, prod) (default: dev)
	LogLevel             string // Log level (debug, info, warn, error) (default: info)
	LogFormat            string // Log format (json, text) (default: json)
	ShutdownGracePeriod  time.Duration
	HousekeepingInterval time.Duration
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:   getEnvOrDefault("TRUSTD_ISSUER", "trustd"),
		Audience: splitList(getEnvOrDefault("TRUSTD_AUDIENCE", "trustd")),

		Algorithm:      getEnvOrDefault("TRUSTD_ALGORITHM", jwtx.AlgorithmEdDSA),
		SigningKeyFile: os.Getenv("TRUSTD_SIGNING_KEY_FILE"),
		SigningSecret:  os.Getenv("TRUSTD_SIGNING_SECRET"),
		KeyID:          os.Getenv("TRUSTD_KEY_ID"),
		AccessTTL:      getEnvDurationOrDefault("TRUSTD_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:     getEnvDurationOrDefault("TRUSTD_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		Leeway:         getEnvDurationOrDefault("TRUSTD_LEEWAY", 30*time.Second),
		TokenRotation:  getEnvBoolOrDefault("TRUSTD_TOKEN_ROTATION", true),

		DatabaseFile: getEnvOrDefault("TRUSTD_DATABASE_FILE", "trustd.db"),

		OIDCIssuerURL:    os.Getenv("TRUSTD_OIDC_ISSUER_URL"),
		OIDCClientID:     os.Getenv("TRUSTD_OIDC_CLIENT_ID"),
		OIDCClientSecret: os.Getenv("TRUSTD_OIDC_CLIENT_SECRET"),
		OIDCRedirectURL:  os.Getenv("TRUSTD_OIDC_REDIRECT_URL"),
		OIDCScopes:       splitList(os.Getenv("TRUSTD_OIDC_SCOPES")),
		OIDCRolesClaim:   getEnvOrDefault("TRUSTD_OIDC_ROLES_CLAIM", "roles"),
		RoleMappings:     parseMappings(os.Getenv("TRUSTD_ROLE_MAPPINGS")),
		DefaultRole:      getEnvOrDefault("TRUSTD_DEFAULT_ROLE", string(domain.RoleViewer)),
		SessionTTL:       getEnvDurationOrDefault("TRUSTD_SESSION_TTL", 10*time.Minute),

		PolicyMode:      getEnvOrDefault("TRUSTD_POLICY_MODE", "off"),
		PolicyURL:       os.Getenv("TRUSTD_POLICY_URL"),
		PolicyTimeout:   getEnvDurationOrDefault("TRUSTD_POLICY_TIMEOUT", 500*time.Millisecond),
		CedarPolicyFile: os.Getenv("TRUSTD_CEDAR_POLICY_FILE"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 15*time.Minute),
	}
	return cfg
}

// Validate rejects configurations the services would misbehave under rather
// than letting them fail at first use.
func (c Config) Validate() error {
	if c.Issuer == "" {
		return fmt.Errorf("%w: issuer is required", ErrConfig)
	}
	if len(c.Audience) == 0 {
		return fmt.Errorf("%w: audience is required", ErrConfig)
	}

	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return fmt.Errorf("%w: token lifetimes must be positive", ErrConfig)
	}
	if c.AccessTTL >= c.RefreshTTL {
		return fmt.Errorf("%w: access lifetime must be shorter than refresh lifetime", ErrConfig)
	}
	if c.Leeway < 0 {
		return fmt.Errorf("%w: leeway must not be negative", ErrConfig)
	}

	switch c.Algorithm {
	case jwtx.AlgorithmRS256, jwtx.AlgorithmES256, jwtx.AlgorithmEdDSA:
		if c.SigningSecret != "" {
			return fmt.Errorf("%w: signing secret is only valid with HS256", ErrConfig)
		}
	case jwtx.AlgorithmHS256:
		if len(c.SigningSecret) < jwtx.MinSecretLength {
			return fmt.Errorf("%w: HS256 secret must be at least %d bytes", ErrConfig, jwtx.MinSecretLength)
		}
	default:
		return fmt.Errorf("%w: unsupported algorithm %q", ErrConfig, c.Algorithm)
	}

	if c.OIDCIssuerURL != "" {
		if c.OIDCClientID == "" || c.OIDCRedirectURL == "" {
			return fmt.Errorf("%w: OIDC client id and redirect url are required when a provider is configured", ErrConfig)
		}
	}
	if !domain.Role(c.DefaultRole).Valid() {
		return fmt.Errorf("%w: unknown default role %q", ErrConfig, c.DefaultRole)
	}

	switch c.PolicyMode {
	case "off":
	case "remote":
		if c.PolicyURL == "" {
			return fmt.Errorf("%w: policy url is required in remote mode", ErrConfig)
		}
	case "cedar":
		if c.CedarPolicyFile == "" {
			return fmt.Errorf("%w: cedar policy file is required in cedar mode", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown policy mode %q", ErrConfig, c.PolicyMode)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseMappings reads "provider-role=local-role" pairs separated by commas.
func parseMappings(value string) map[string]string {
	if value == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		from, to, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || from == "" || to == "" {
			continue
		}
		out[from] = to
	}
	return out
}
