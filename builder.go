package goGuard

import (
	"errors"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/goGuard/incident"
	internalaudit "github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/jwt"
	"github.com/MrEthical07/goGuard/keys"
	"github.com/MrEthical07/goGuard/ledger"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config

	redis   redis.UniversalClient
	backend ledger.Backend

	keyProvider keys.Provider
	directory   UserDirectory
	auditSink   AuditSink
	logger      logrus.FieldLogger
	now         func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the configuration. cfg is cloned.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis stores the ledger and incident clock in Redis using the Ledger key settings.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithBackend stores the ledger and incident clock in backend. It takes precedence over WithRedis.
func (b *Builder) WithBackend(backend ledger.Backend) *Builder {
	b.backend = backend
	return b
}

// WithKeyProvider overrides the key material resolved from Config.JWT.
func (b *Builder) WithKeyProvider(p keys.Provider) *Builder {
	b.keyProvider = p
	return b
}

// WithUserDirectory sets the directory used to resolve token subjects and credentials.
func (b *Builder) WithUserDirectory(d UserDirectory) *Builder {
	b.directory = d
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(log logrus.FieldLogger) *Builder {
	b.logger = log
	return b
}

// WithClock overrides time.Now for issuance, verification and the incident clock.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, resolves key material and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend := b.backend
	if backend == nil {
		if b.redis == nil {
			return nil, errors.New("ledger backend or redis client required")
		}
		backend = ledger.NewRedisStore(b.redis, cfg.Ledger.KeyPrefix, cfg.Ledger.IncidentKey)
	}

	// -------- KEY MATERIAL --------
	provider := b.keyProvider
	if provider == nil {
		p, err := keys.FromConfig(cfg.JWT.KeyConfig())
		if err != nil {
			return nil, err
		}
		provider = p
	}
	method, err := provider.Method()
	if err != nil {
		return nil, err
	}
	signKey, err := provider.SigningKey()
	if err != nil {
		return nil, err
	}
	verifyKey, err := provider.VerificationKey()
	if err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	log := b.logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	engine := &Engine{
		config:    cloneConfig(cfg),
		keys:      provider,
		method:    method,
		signKey:   signKey,
		verifyKey: verifyKey,
		codec: jwt.Codec{
			KeyID:  cfg.JWT.KeyID,
			Leeway: cfg.JWT.Leeway,
			Now:    now,
		},
		directory: b.directory,
		metrics:   NewMetrics(cfg.Metrics),
		log:       log,
		now:       now,
	}

	// -------- LEDGER + INCIDENT CLOCK --------
	lg, err := ledger.New(backend,
		ledger.WithMaxRetries(cfg.Ledger.MaxRetries),
		ledger.WithLogger(log),
		ledger.WithConflictHook(func() { engine.metricInc(MetricLedgerConflict) }),
	)
	if err != nil {
		return nil, err
	}
	clock, err := incident.NewClock(backend, incident.WithNow(now))
	if err != nil {
		return nil, err
	}
	engine.ledger = lg
	engine.incidents = clock

	// -------- AUDIT --------
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.auditIDs = internalaudit.NewIDSource()

	b.built = true

	log.WithFields(logrus.Fields{
		"algorithm": method.Alg(),
		"backend":   backendName(backend),
	}).Debug("goguard engine built")

	return engine, nil
}

func backendName(b ledger.Backend) string {
	switch b.(type) {
	case *ledger.RedisStore:
		return "redis"
	case *ledger.MemoryStore:
		return "memory"
	default:
		return "custom"
	}
}
