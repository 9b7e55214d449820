package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sellerhub/authcore/pkg/jwtx"
)

// refreshSecretSuffix derives a distinct refresh signing key from the access
// secret when no dedicated refresh secret is configured. Access and refresh
// tokens must never verify against each other's keyring.
const refreshSecretSuffix = ".refresh"

type Config struct {
	Issuer          string   // Issuer claim for minted tokens (default: authcore)
	AccessSecret    string   // Required: HS256 signing secret for access tokens
	RefreshSecret   string   // Optional: refresh token secret (default: derived from AccessSecret)
	PreviousSecrets []string // Optional: retired secrets still accepted for verification

	AccessTTL  time.Duration // Access token lifetime (default: 1h)
	RefreshTTL time.Duration // Refresh token lifetime (default: 168h)

	BaselineRole  string // Role assumed when a token carries none (default: user)
	RoleHierarchy string // Optional: "name:level,..." overriding the built-in ladder
	AdminRoles    []string

	EmailVerificationRequired bool // Reject logins from unverified emails (default: false)
	TermsAcceptanceRequired   bool // Reject logins before terms acceptance (default: false)
	CustomPermissionsEnabled  bool // Install the custom-permission hook if one is provided (default: false)
	TemporaryRolesEnabled     bool // Install the temporary-role hook if one is provided (default: false)
	RoleLoggingEnabled        bool // Emit audit events for authorization decisions (default: true)

	LoginAttemptsPerMinute int // Per-email login throttle (default: 5, <=0 disables)
	LoginBurst             int // Throttle burst allowance (default: 5)

	DatabaseFile string // Path to SQLite refresh token store (default: ./authcore.db)
	PostgresDSN  string // Optional: use Postgres for the refresh token store instead

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)

	HousekeepingInterval time.Duration // Expired token sweep interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:        getEnvOrDefault("AUTH_ISSUER", "authcore"),
		AccessSecret:  os.Getenv("AUTH_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("AUTH_REFRESH_SECRET"),

		AccessTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL: getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),

		BaselineRole:  getEnvOrDefault("AUTH_BASELINE_ROLE", "user"),
		RoleHierarchy: os.Getenv("AUTH_ROLE_HIERARCHY"),
		AdminRoles:    splitList(getEnvOrDefault("AUTH_ADMIN_ROLES", "admin")),

		EmailVerificationRequired: getEnvBoolOrDefault("AUTH_EMAIL_VERIFICATION_REQUIRED", false),
		TermsAcceptanceRequired:   getEnvBoolOrDefault("AUTH_TERMS_ACCEPTANCE_REQUIRED", false),
		CustomPermissionsEnabled:  getEnvBoolOrDefault("AUTH_ENABLE_CUSTOM_PERMISSIONS", false),
		TemporaryRolesEnabled:     getEnvBoolOrDefault("AUTH_ENABLE_TEMPORARY_ROLES", false),
		RoleLoggingEnabled:        getEnvBoolOrDefault("AUTH_ENABLE_ROLE_LOGGING", true),

		LoginAttemptsPerMinute: getEnvIntOrDefault("AUTH_LOGIN_RATE", 5),
		LoginBurst:             getEnvIntOrDefault("AUTH_LOGIN_BURST", 5),

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "authcore.db"),
		PostgresDSN:  os.Getenv("AUTH_POSTGRES_DSN"),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if prev := os.Getenv("AUTH_PREVIOUS_SECRETS"); prev != "" {
		cfg.PreviousSecrets = splitList(prev)
	}

	if cfg.RefreshSecret == "" && cfg.AccessSecret != "" {
		cfg.RefreshSecret = cfg.AccessSecret + refreshSecretSuffix
	}

	return cfg
}

// AccessKeyring builds the access token keyring: the current secret signs,
// previous secrets still verify during a rotation window.
func (c Config) AccessKeyring() (*jwtx.Keyring, error) {
	return jwtx.NewKeyring([]byte(c.AccessSecret), toBytes(c.PreviousSecrets, "")...)
}

// RefreshKeyring builds the refresh token keyring. Previous secrets get the
// same derivation suffix applied as the primary.
func (c Config) RefreshKeyring() (*jwtx.Keyring, error) {
	return jwtx.NewKeyring([]byte(c.RefreshSecret), toBytes(c.PreviousSecrets, refreshSecretSuffix)...)
}

func toBytes(secrets []string, suffix string) [][]byte {
	out := make([][]byte, len(secrets))
	for i, s := range secrets {
		out[i] = []byte(s + suffix)
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer hours for bare numbers
	if hours, err := strconv.Atoi(value); err == nil {
		return time.Duration(hours) * time.Hour
	}

	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
