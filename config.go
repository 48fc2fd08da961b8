package authcore

import (
	"errors"
	"time"
)

// ValidationMode selects how [Engine.Validate] treats the session store.
type ValidationMode uint8

const (
	// ModeInherit uses the engine-wide default from [Config.ValidationMode].
	ModeInherit ValidationMode = iota
	// ModeJWTOnly validates the token signature and expiry only. No Redis
	// round-trip, but deactivated sessions are NOT detected: a revoked token
	// keeps working until its natural expiry. Use only on routes that can
	// tolerate that window.
	ModeJWTOnly
	// ModeStrict additionally requires a live session record: active, not
	// expired, token hash matching. This is the path that honors logout and
	// password-change revocation mid-lifetime, and it refreshes the session's
	// last-activity timestamp.
	ModeStrict
)

// Config carries all engine tuning. Populate it once (DefaultConfig, LoadConfig,
// or by hand), pass it to [Builder.WithConfig], and treat it as immutable after
// Build.
type Config struct {
	JWT            JWTConfig
	Session        SessionConfig
	Password       PasswordConfig
	MFA            CodeConfig
	Reset          ResetConfig
	Account        AccountConfig
	RateLimit      RateLimitConfig
	Audit          AuditConfig
	Metrics        MetricsConfig
	ValidationMode ValidationMode
}

// JWTConfig controls token issuance. Secret is the process-wide signing key,
// fixed for the process lifetime.
type JWTConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	Secret        []byte // HS256 key, or Ed25519 private key seed/PEM
	PublicKey     []byte // Ed25519 only
	Issuer        string
	Leeway        time.Duration
}

// SessionConfig controls the Redis session store.
type SessionConfig struct {
	RedisPrefix string
	TTL         time.Duration
}

// PasswordConfig carries Argon2id parameters. Zero values are replaced by the
// defaults from DefaultConfig at Build time.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// CodeConfig describes one one-time-code family (alphabet, length, lifetime).
type CodeConfig struct {
	Length int
	TTL    time.Duration
}

// ResetConfig extends CodeConfig with the policy applied to the replacement
// password.
type ResetConfig struct {
	Code              CodeConfig
	MinPasswordLength int
}

// AccountConfig controls signup behavior.
type AccountConfig struct {
	Enabled     bool
	DefaultRole Role
}

// RateLimitConfig tunes the fixed-window throttles on login and reset
// requests. Zero MaxLoginAttempts disables login throttling entirely.
type RateLimitConfig struct {
	MaxLoginAttempts int
	LoginCooldown    time.Duration
	MaxResetRequests int
	ResetCooldown    time.Duration
	EnableIPThrottle bool
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the configuration matching the original deployment:
// HS256 tokens with a 60-minute TTL, 60-minute sessions, 6-digit MFA codes
// valid 10 minutes, 8-character reset codes valid 30 minutes, 6-character
// minimum reset password, customer as the signup role.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			TTL:           time.Hour,
			SigningMethod: "hs256",
			Leeway:        0,
		},
		Session: SessionConfig{
			RedisPrefix: "as",
			TTL:         time.Hour,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		MFA: CodeConfig{
			Length: 6,
			TTL:    10 * time.Minute,
		},
		Reset: ResetConfig{
			Code: CodeConfig{
				Length: 8,
				TTL:    30 * time.Minute,
			},
			MinPasswordLength: 6,
		},
		Account: AccountConfig{
			Enabled:     true,
			DefaultRole: RoleCustomer,
		},
		RateLimit: RateLimitConfig{
			MaxLoginAttempts: 10,
			LoginCooldown:    15 * time.Minute,
			MaxResetRequests: 5,
			ResetCooldown:    time.Hour,
			EnableIPThrottle: true,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		ValidationMode: ModeStrict,
	}
}

// Validate checks the configuration for values the engine cannot operate
// with. Builder.Build calls it; exposed for callers that assemble Config by
// hand and want early feedback.
func (c *Config) Validate() error {
	if c.JWT.TTL <= 0 {
		return errors.New("jwt ttl must be positive")
	}
	if len(c.JWT.Secret) == 0 {
		return errors.New("jwt signing secret required")
	}
	switch c.JWT.SigningMethod {
	case "", "hs256", "ed25519":
	default:
		return errors.New("unsupported jwt signing method")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.MFA.Length < 4 || c.MFA.Length > 10 {
		return errors.New("mfa code length out of range")
	}
	if c.MFA.TTL <= 0 {
		return errors.New("mfa code ttl must be positive")
	}
	if c.Reset.Code.Length < 6 || c.Reset.Code.Length > 32 {
		return errors.New("reset code length out of range")
	}
	if c.Reset.Code.TTL <= 0 {
		return errors.New("reset code ttl must be positive")
	}
	if c.Reset.MinPasswordLength < 1 {
		return errors.New("reset minimum password length must be positive")
	}
	if c.Account.Enabled && !c.Account.DefaultRole.Valid() {
		return errors.New("account default role unknown")
	}
	switch c.ValidationMode {
	case ModeJWTOnly, ModeStrict:
	default:
		return errors.New("validation mode must be jwt-only or strict")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = append([]byte(nil), cfg.JWT.Secret...)
	out.JWT.PublicKey = append([]byte(nil), cfg.JWT.PublicKey...)
	return out
}
