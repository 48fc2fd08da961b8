package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/hostelworks/authcore/internal/audit"
	"github.com/hostelworks/authcore/internal/metrics"
	"github.com/hostelworks/authcore/internal/rate"
	"github.com/hostelworks/authcore/jwt"
	"github.com/hostelworks/authcore/otp"
	"github.com/hostelworks/authcore/password"
	"github.com/hostelworks/authcore/session"
)

// Builder assembles an [Engine]. Chain the With* setters and call Build
// once; a Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userStore UserStore
	notifier  Notifier
	auditSink AuditSink

	mfaStore   otp.Store
	resetStore otp.Store

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing sessions, one-time codes, and
// rate limiting. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the account backend. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.userStore = store
	return b
}

// WithNotifier sets the out-of-band code delivery channel. Defaults to
// [NoOpNotifier].
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets where audit events go. Without a sink, events are
// dropped even when auditing is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMFAStore overrides the backing store for login challenge codes.
// Defaults to Redis.
func (b *Builder) WithMFAStore(store otp.Store) *Builder {
	b.mfaStore = store
	return b
}

// WithResetStore overrides the backing store for password reset codes.
// Defaults to Redis.
func (b *Builder) WithResetStore(store otp.Store) *Builder {
	b.resetStore = store
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires every subsystem, and returns
// the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userStore == nil {
		return nil, errors.New("user store required")
	}
	// Sessions always live in Redis, so without a client every login and
	// signup would fail at runtime. Reject the configuration up front.
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	engine := &Engine{
		config:    cfg,
		userStore: b.userStore,
		notifier:  b.notifier,
	}
	if engine.notifier == nil {
		engine.notifier = NoOpNotifier{}
	}

	engine.sessionStore = session.NewStore(b.redis, cfg.Session.RedisPrefix)
	engine.rateLimiter = rate.New(b.redis, rate.Config{
		EnableIPThrottle:      cfg.RateLimit.EnableIPThrottle,
		MaxLoginAttempts:      cfg.RateLimit.MaxLoginAttempts,
		LoginCooldownDuration: cfg.RateLimit.LoginCooldown,
		MaxResetRequests:      cfg.RateLimit.MaxResetRequests,
		ResetCooldownDuration: cfg.RateLimit.ResetCooldown,
	})

	mfaStore := b.mfaStore
	if mfaStore == nil {
		mfaStore = otp.NewRedisStore(b.redis, "hm")
	}
	mfaCodes, err := otp.NewService(mfaStore, otp.Config{
		Alphabet: otp.AlphabetDigits,
		Length:   cfg.MFA.Length,
		TTL:      cfg.MFA.TTL,
	})
	if err != nil {
		return nil, err
	}
	engine.mfaCodes = mfaCodes

	resetStore := b.resetStore
	if resetStore == nil {
		resetStore = otp.NewRedisStore(b.redis, "hp")
	}
	resetCodes, err := otp.NewService(resetStore, otp.Config{
		Alphabet: otp.AlphabetUpperAlnum,
		Length:   cfg.Reset.Code.Length,
		TTL:      cfg.Reset.Code.TTL,
	})
	if err != nil {
		return nil, err
	}
	engine.resetCodes = resetCodes

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = metrics.New(metrics.Config{Enabled: cfg.Metrics.Enabled})

	ph, err := password.New(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.hasher = ph

	jm, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.JWT.TTL,
		SigningMethod: jwt.SigningMethod(signingMethodOrDefault(cfg.JWT.SigningMethod)),
		Key:           cloneBytes(cfg.JWT.Secret),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	b.built = true

	return engine, nil
}

func signingMethodOrDefault(method string) string {
	if method == "" {
		return "hs256"
	}
	return method
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
