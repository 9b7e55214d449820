package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("AUTH_ACCESS_SECRET", "test-secret")

	cfg := LoadConfig()

	require.Equal(t, "authcore", cfg.Issuer)
	require.Equal(t, "test-secret", cfg.AccessSecret)
	require.Equal(t, "test-secret"+refreshSecretSuffix, cfg.RefreshSecret)
	require.Equal(t, time.Hour, cfg.AccessTTL)
	require.Equal(t, 168*time.Hour, cfg.RefreshTTL)
	require.Equal(t, "user", cfg.BaselineRole)
	require.Equal(t, []string{"admin"}, cfg.AdminRoles)
	require.False(t, cfg.EmailVerificationRequired)
	require.False(t, cfg.TermsAcceptanceRequired)
	require.False(t, cfg.CustomPermissionsEnabled)
	require.False(t, cfg.TemporaryRolesEnabled)
	require.True(t, cfg.RoleLoggingEnabled)
	require.Equal(t, 5, cfg.LoginAttemptsPerMinute)
	require.Equal(t, "authcore.db", cfg.DatabaseFile)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("AUTH_ACCESS_SECRET", "primary")
	t.Setenv("AUTH_REFRESH_SECRET", "refresh-own")
	t.Setenv("AUTH_PREVIOUS_SECRETS", "old-one, old-two")
	t.Setenv("AUTH_ACCESS_TTL", "15m")
	t.Setenv("AUTH_REFRESH_TTL", "24")
	t.Setenv("AUTH_ADMIN_ROLES", "admin,superuser")
	t.Setenv("AUTH_EMAIL_VERIFICATION_REQUIRED", "true")
	t.Setenv("AUTH_ENABLE_ROLE_LOGGING", "false")
	t.Setenv("AUTH_LOGIN_RATE", "10")

	cfg := LoadConfig()

	require.Equal(t, "refresh-own", cfg.RefreshSecret)
	require.Equal(t, []string{"old-one", "old-two"}, cfg.PreviousSecrets)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, 24*time.Hour, cfg.RefreshTTL, "bare numbers parse as hours")
	require.Equal(t, []string{"admin", "superuser"}, cfg.AdminRoles)
	require.True(t, cfg.EmailVerificationRequired)
	require.False(t, cfg.RoleLoggingEnabled)
	require.Equal(t, 10, cfg.LoginAttemptsPerMinute)
}

func TestKeyrings(t *testing.T) {
	t.Run("access and refresh rings are distinct", func(t *testing.T) {
		t.Setenv("AUTH_ACCESS_SECRET", "primary")
		cfg := LoadConfig()

		access, err := cfg.AccessKeyring()
		require.NoError(t, err)
		refresh, err := cfg.RefreshKeyring()
		require.NoError(t, err)

		// A token signed by one ring must not verify against the other.
		require.NotNil(t, access)
		require.NotNil(t, refresh)
		require.NotEqual(t, cfg.AccessSecret, cfg.RefreshSecret)
	})

	t.Run("missing access secret fails", func(t *testing.T) {
		cfg := Config{}
		_, err := cfg.AccessKeyring()
		require.Error(t, err)
	})
}
