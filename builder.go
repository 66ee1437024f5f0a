package goSession

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/lease"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/janitor"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const buildPingTimeout = 5 * time.Second

// Builder assembles an [Engine]. It is single-use.
type Builder struct {
	config Config
	db     *gorm.DB
	redis  redis.UniversalClient

	userProvider UserProvider
	verifier     password.Verifier
	auditSink    AuditSink
	logger       *slog.Logger
	now          func() time.Time
	autoMigrate  bool

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. The config is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithDB sets the relational store holding sessions and login attempts. The
// caller owns the handle and closes it after [Engine.Close].
func (b *Builder) WithDB(db *gorm.DB) *Builder {
	b.db = db
	return b
}

// WithRedis enables the fleet-wide janitor lease. Optional.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the user lookup backend. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithPasswordVerifier overrides the default argon2id+bcrypt verifier.
func (b *Builder) WithPasswordVerifier(v password.Verifier) *Builder {
	b.verifier = v
	return b
}

// WithAuditSink sets where audit events go when auditing is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides the time source for sessions, lockout, tokens and the
// janitor. Tests use it to move time forward.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithAutoMigrate makes Build run [Migrate] after the database answers.
func (b *Builder) WithAutoMigrate(enabled bool) *Builder {
	b.autoMigrate = enabled
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the authenticate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, checks that the database answers and
// wires the engine. An unreachable database is an error: the engine refuses
// to start without its store.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.db == nil {
		return nil, ErrDatabaseRequired
	}
	if b.userProvider == nil {
		return nil, ErrUserProviderRequired
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- STORES --------
	store := session.NewStore(b.db, cfg.Session.IdleTTL, now)

	pingCtx, cancel := context.WithTimeout(context.Background(), buildPingTimeout)
	defer cancel()
	if _, err := store.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if b.autoMigrate {
		if err := Migrate(b.db); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	limiter := rate.New(b.db, rate.Config{
		MaxLoginAttempts: cfg.Lockout.MaxAttempts,
		LockoutDuration:  cfg.Lockout.Window,
	}, now)

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORDS --------
	verifier := b.verifier
	if verifier == nil {
		argon, err := password.NewArgon2(cfg.Password.Argon2())
		if err != nil {
			return nil, err
		}
		legacy, err := password.NewBcrypt(cfg.Password.BcryptCost)
		if err != nil {
			return nil, err
		}
		auto, err := password.NewAuto(argon, legacy)
		if err != nil {
			return nil, err
		}
		verifier = auto
	}

	engine := &Engine{
		config:       cfg,
		db:           b.db,
		sessionStore: store,
		rateLimiter:  limiter,
		jwtManager:   jm,
		verifier:     verifier,
		userProvider: b.userProvider,
		metrics:      NewMetrics(cfg.Metrics),
		logger:       logger.With("component", "gosession"),
		now:          now,
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	// -------- JANITOR --------
	if cfg.Janitor.Enabled {
		var l *lease.Lease
		if b.redis != nil {
			l = lease.New(b.redis, cfg.Janitor.LeaseKey)
		}
		engine.janitor = janitor.New(b.db, store, limiter, janitor.Config{
			Interval:         cfg.Janitor.Interval,
			RetryInterval:    cfg.Janitor.RetryInterval,
			AttemptRetention: cfg.Janitor.AttemptRetention,
		}, janitor.Options{
			Logger:  logger,
			Lease:   l,
			Now:     now,
			OnSweep: engine.recordSweep,
		})
	}

	engine.flows = newFlowService(engine)

	b.built = true

	return engine, nil
}
