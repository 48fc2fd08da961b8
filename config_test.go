package authcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "hs256", cfg.JWT.SigningMethod)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, "as", cfg.Session.RedisPrefix)
	assert.Equal(t, 6, cfg.MFA.Length)
	assert.Equal(t, 10*time.Minute, cfg.MFA.TTL)
	assert.Equal(t, 8, cfg.Reset.Code.Length)
	assert.Equal(t, 30*time.Minute, cfg.Reset.Code.TTL)
	assert.Equal(t, 6, cfg.Reset.MinPasswordLength)
	assert.Equal(t, RoleCustomer, cfg.Account.DefaultRole)
	assert.True(t, cfg.Account.Enabled)
	assert.Equal(t, ModeStrict, cfg.ValidationMode)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing secret",
			mutate:  func(c *Config) { c.JWT.Secret = nil },
			wantErr: "jwt signing secret required",
		},
		{
			name:    "zero token ttl",
			mutate:  func(c *Config) { c.JWT.TTL = 0 },
			wantErr: "jwt ttl must be positive",
		},
		{
			name:    "unsupported signing method",
			mutate:  func(c *Config) { c.JWT.SigningMethod = "rs256" },
			wantErr: "unsupported jwt signing method",
		},
		{
			name:    "zero session ttl",
			mutate:  func(c *Config) { c.Session.TTL = 0 },
			wantErr: "session ttl must be positive",
		},
		{
			name:    "mfa code too short",
			mutate:  func(c *Config) { c.MFA.Length = 3 },
			wantErr: "mfa code length out of range",
		},
		{
			name:    "reset code too short",
			mutate:  func(c *Config) { c.Reset.Code.Length = 4 },
			wantErr: "reset code length out of range",
		},
		{
			name:    "unknown default role",
			mutate:  func(c *Config) { c.Account.DefaultRole = Role("janitor") },
			wantErr: "account default role unknown",
		},
		{
			name:    "inherit as engine default",
			mutate:  func(c *Config) { c.ValidationMode = ModeInherit },
			wantErr: "validation mode must be jwt-only or strict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("AUTH_SECRET_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("AUTH_TOKEN_TTL", "15m")
	t.Setenv("AUTH_SESSION_TTL", "45m")
	t.Setenv("AUTH_SESSION_PREFIX", "hx")
	t.Setenv("AUTH_MFA_CODE_LENGTH", "8")
	t.Setenv("AUTH_DEFAULT_ROLE", "receptionist")
	t.Setenv("AUTH_MAX_LOGIN_ATTEMPTS", "4")
	t.Setenv("AUTH_STRICT_VALIDATION", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), cfg.JWT.Secret)
	assert.Equal(t, 15*time.Minute, cfg.JWT.TTL)
	assert.Equal(t, 45*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "hx", cfg.Session.RedisPrefix)
	assert.Equal(t, 8, cfg.MFA.Length)
	assert.Equal(t, RoleReceptionist, cfg.Account.DefaultRole)
	assert.Equal(t, 4, cfg.RateLimit.MaxLoginAttempts)
	assert.Equal(t, ModeJWTOnly, cfg.ValidationMode)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("AUTH_SECRET_KEY", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("AUTH_SECRET_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("AUTH_DEFAULT_ROLE", "janitor")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default role")
}
