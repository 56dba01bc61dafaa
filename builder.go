package tokenkit

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dkovalenko/tokenkit/denylist"
	"github.com/dkovalenko/tokenkit/internal/audit"
	"github.com/dkovalenko/tokenkit/jwt"
	"github.com/dkovalenko/tokenkit/store"

	"github.com/google/uuid"
)

// Builder assembles a Service. Builders are single-use: Build can be called
// once.
type Builder struct {
	config Config

	store    store.Store
	denylist denylist.Denylist
	redis    redis.UniversalClient

	auditSink AuditSink
	clock     func() time.Time
	idGen     IDGenerator
	resolver  PermissionsResolver

	built bool
}

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

// WithStore sets the refresh-token store. Required.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithDenylist sets an explicit denylist backend. Takes precedence over
// WithRedis.
func (b *Builder) WithDenylist(d denylist.Denylist) *Builder {
	b.denylist = d
	return b
}

// WithRedis wires a Redis-backed denylist for multi-instance deployments.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the sink that receives audit events. Implies nothing
// about Audit.Enabled; both must be set for events to flow.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the time source. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithIDGenerator overrides jti generation. Intended for tests.
func (b *Builder) WithIDGenerator(gen IDGenerator) *Builder {
	b.idGen = gen
	return b
}

// WithPermissionsResolver sets the callback that supplies permission claims
// at issuance time.
func (b *Builder) WithPermissionsResolver(r PermissionsResolver) *Builder {
	b.resolver = r
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, assembles the dependency graph, and
// returns a ready Service.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("refresh token store required")
	}

	dl := b.denylist
	if dl == nil {
		if b.redis != nil {
			dl = denylist.NewRedis(b.redis, cfg.Denylist.RedisPrefix)
		} else {
			dl = denylist.NewMemory()
		}
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}
	idGen := b.idGen
	if idGen == nil {
		idGen = uuid.NewString
	}

	svc := &Service{
		config:     cfg,
		store:      b.store,
		denylist:   dl,
		jwtManager: jm,
		clock:      clock,
		idGen:      idGen,
		resolver:   b.resolver,
		metrics:    newMetrics(cfg.Metrics),
		replay:     newReplayCache(cfg.Refresh.RotationGraceWindow, clock),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}
	if cfg.Denylist.TrackIssuedAccess {
		svc.tracker = newIssuedTracker(clock)
	}

	b.built = true

	return svc, nil
}
