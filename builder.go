package linking

import (
	"errors"

	"github.com/Kramarich000/sharkflow-linking/internal"
	"github.com/Kramarich000/sharkflow-linking/internal/stores"
	"github.com/redis/go-redis/v9"
)

// Builder wires an Engine. Configure during initialization, call Build
// once, then treat the result as immutable.
type Builder struct {
	config Config
	redis  *redis.Client

	identity   IdentityStore
	deliverer  Deliverer
	auditSink  AuditSink
	clock      Clock
	codeSource CodeSource

	built bool
}

// New returns a builder seeded with defaults: 15-minute TTL, 6-digit
// codes, 3-second store timeouts.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the default configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis injects the Redis client backing both record stores. The
// engine takes no ownership; closing the client is the caller's job.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithIdentityStore injects the persistent identity collaborator.
func (b *Builder) WithIdentityStore(store IdentityStore) *Builder {
	b.identity = store
	return b
}

// WithDeliverer injects the out-of-band code delivery channel.
func (b *Builder) WithDeliverer(d Deliverer) *Builder {
	b.deliverer = d
	return b
}

// WithAuditSink injects the audit event consumer. Only consulted when
// Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the time source, for deterministic tests.
func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

// WithCodeSource overrides confirmation code generation, for
// deterministic tests.
func (b *Builder) WithCodeSource(src CodeSource) *Builder {
	b.codeSource = src
	return b
}

// WithMetricsEnabled toggles the outcome counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the wiring and assembles the Engine. A builder can be
// used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.identity == nil {
		return nil, errors.New("identity store required")
	}
	if b.deliverer == nil {
		return nil, errors.New("deliverer required")
	}

	clock := b.clock
	if clock == nil {
		clock = systemClock{}
	}
	codeSource := b.codeSource
	if codeSource == nil {
		codeSource = internal.NewCode
	}

	engine := &Engine{
		config: cfg,
		confirmations: stores.NewConfirmationStore(
			b.redis,
			cfg.Confirmation.RedisPrefix,
			cfg.Store.OpTimeout,
		),
		tempData: stores.NewTempDataStore(
			b.redis,
			cfg.TempData.RedisPrefix,
			cfg.Store.OpTimeout,
			allNamespaces(),
		),
		identity:   b.identity,
		deliverer:  b.deliverer,
		clock:      clock,
		codeSource: codeSource,
		audit:      newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:    NewMetrics(cfg.Metrics),
	}

	b.built = true

	return engine, nil
}
