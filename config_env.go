package authcore

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envConfig is the flat environment surface. It maps onto Config rather than
// being Config so the exported struct keeps byte-slice keys and typed roles.
type envConfig struct {
	SigningSecret string        `env:"AUTH_SECRET_KEY,required"`
	SigningMethod string        `env:"AUTH_ALGORITHM" envDefault:"hs256"`
	TokenTTL      time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"60m"`
	Issuer        string        `env:"AUTH_ISSUER"`

	SessionTTL    time.Duration `env:"AUTH_SESSION_TTL" envDefault:"60m"`
	SessionPrefix string        `env:"AUTH_SESSION_PREFIX" envDefault:"as"`

	MFACodeLength int           `env:"AUTH_MFA_CODE_LENGTH" envDefault:"6"`
	MFACodeTTL    time.Duration `env:"AUTH_MFA_CODE_TTL" envDefault:"10m"`

	ResetCodeLength   int           `env:"AUTH_RESET_CODE_LENGTH" envDefault:"8"`
	ResetCodeTTL      time.Duration `env:"AUTH_RESET_CODE_TTL" envDefault:"30m"`
	MinPasswordLength int           `env:"AUTH_MIN_PASSWORD_LENGTH" envDefault:"6"`

	DefaultRole string `env:"AUTH_DEFAULT_ROLE" envDefault:"customer"`

	MaxLoginAttempts int           `env:"AUTH_MAX_LOGIN_ATTEMPTS" envDefault:"10"`
	LoginCooldown    time.Duration `env:"AUTH_LOGIN_COOLDOWN" envDefault:"15m"`

	AuditBufferSize int  `env:"AUTH_AUDIT_BUFFER" envDefault:"256"`
	MetricsEnabled  bool `env:"AUTH_METRICS_ENABLED" envDefault:"true"`

	StrictValidation bool `env:"AUTH_STRICT_VALIDATION" envDefault:"true"`
}

// LoadConfig builds a Config from environment variables, layered on top of
// [DefaultConfig]. A .env file in the working directory is loaded first when
// present; a missing file is not an error (the godotenv convention).
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var e envConfig
	if err := env.Parse(&e); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte(e.SigningSecret)
	cfg.JWT.SigningMethod = e.SigningMethod
	cfg.JWT.TTL = e.TokenTTL
	cfg.JWT.Issuer = e.Issuer
	cfg.Session.TTL = e.SessionTTL
	cfg.Session.RedisPrefix = e.SessionPrefix
	cfg.MFA.Length = e.MFACodeLength
	cfg.MFA.TTL = e.MFACodeTTL
	cfg.Reset.Code.Length = e.ResetCodeLength
	cfg.Reset.Code.TTL = e.ResetCodeTTL
	cfg.Reset.MinPasswordLength = e.MinPasswordLength
	cfg.Account.DefaultRole = Role(e.DefaultRole)
	cfg.RateLimit.MaxLoginAttempts = e.MaxLoginAttempts
	cfg.RateLimit.LoginCooldown = e.LoginCooldown
	cfg.Audit.BufferSize = e.AuditBufferSize
	cfg.Metrics.Enabled = e.MetricsEnabled
	if e.StrictValidation {
		cfg.ValidationMode = ModeStrict
	} else {
		cfg.ValidationMode = ModeJWTOnly
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
