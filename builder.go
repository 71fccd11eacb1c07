package goTrust

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/MrEthical07/goTrust/credential"
	"github.com/MrEthical07/goTrust/hashing"
	"github.com/MrEthical07/goTrust/internal/audit"
	"github.com/MrEthical07/goTrust/internal/limiters"
	"github.com/MrEthical07/goTrust/metadata"
	"github.com/MrEthical07/goTrust/metadata/blobstore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	pgDB   credential.DB

	store     credential.Store
	blobs     metadata.BlobSource
	auditSink AuditSink
	logger    *log.Logger

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis supplies the client used by the "redis" credential and blob backends.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPostgres supplies the connection used by the "postgres" credential backend.
// Without it, Build opens a pool from Config.Postgres and Close releases it.
func (b *Builder) WithPostgres(db credential.DB) *Builder {
	b.pgDB = db
	return b
}

// WithCredentialStore overrides the configured credential backend.
func (b *Builder) WithCredentialStore(store credential.Store) *Builder {
	b.store = store
	return b
}

// WithBlobStore overrides the configured statement blob backend.
func (b *Builder) WithBlobStore(source metadata.BlobSource) *Builder {
	b.blobs = source
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger routes engine and advisory log lines to logger.
func (b *Builder) WithLogger(logger *log.Logger) *Builder {
	b.logger = logger
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

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = log.Default()
	}

	e := &Engine{
		config:  cfg,
		catalog: metadata.NewCatalog(),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
	}

	// -------- HASHING --------
	hook := hashing.WithFallbackHook(e.onParamFallback)
	argon, err := hashing.NewArgon2(cfg.Hashing.Argon2.hashingConfig(), hook)
	if err != nil {
		return nil, err
	}
	strategy, err := hashing.NewStrategy(
		cfg.Hashing.DefaultAlgorithm,
		hashing.NewPBKDF2(cfg.Hashing.PBKDF2Iterations, hook),
		argon,
	)
	if err != nil {
		return nil, err
	}
	e.strategy = strategy

	dummy, err := strategy.HashNew("gotrust-unknown-user")
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	e.dummy = dummy

	// -------- CREDENTIAL STORE --------
	store, pool, err := b.credentialStore(cfg)
	if err != nil {
		return nil, err
	}
	e.store = store
	e.pgPool = pool

	// -------- BLOB SOURCE --------
	blobs, err := b.blobSource(cfg)
	if err != nil {
		return nil, err
	}
	e.blobs = blobs

	// -------- THROTTLE --------
	if cfg.Throttle.Enabled {
		if b.redis == nil {
			return nil, errors.New("verify throttle requires redis client")
		}
		e.limiter = limiters.NewVerifyLimiter(b.redis, limiters.VerifyConfig{
			MaxFailures: cfg.Throttle.MaxFailures,
			Window:      cfg.Throttle.Window,
		})
	}

	// -------- AUDIT --------
	e.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Critical:   []string{auditEventAuthenticatorRejected, auditEventCatalogPublished},
	}, b.auditSink)

	b.built = true
	return e, nil
}

// credentialStore returns the configured store. The pool is non-nil only when
// the store opened its own Postgres connection from cfg.Postgres.
func (b *Builder) credentialStore(cfg Config) (credential.Store, *pgxpool.Pool, error) {
	if b.store != nil {
		return b.store, nil, nil
	}

	switch cfg.Credentials.Backend {
	case BackendRedis:
		if b.redis == nil {
			return nil, nil, errors.New("redis credential backend requires redis client")
		}
		return credential.NewRedisStore(b.redis, cfg.Credentials.RedisPrefix), nil, nil
	case BackendPostgres:
		db := b.pgDB
		var pool *pgxpool.Pool
		if db == nil {
			var err error
			pool, err = credential.NewPool(context.Background(), cfg.Postgres)
			if err != nil {
				return nil, nil, fmt.Errorf("postgres credential backend: %w", err)
			}
			db = pool
		}
		store, err := credential.NewPostgresStore(db, cfg.Postgres.Table)
		if err != nil {
			if pool != nil {
				pool.Close()
			}
			return nil, nil, err
		}
		return store, pool, nil
	default:
		return nil, nil, nil
	}
}

func (b *Builder) blobSource(cfg Config) (metadata.BlobSource, error) {
	if b.blobs != nil {
		return b.blobs, nil
	}

	switch cfg.Metadata.BlobBackend {
	case BackendRedis:
		if b.redis == nil {
			return nil, errors.New("redis blob backend requires redis client")
		}
		return blobstore.NewRedisBlobStore(b.redis, cfg.Metadata.RedisPrefix), nil
	case BackendObject:
		store, err := blobstore.NewObjectBlobStore(cfg.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("object blob backend: %w", err)
		}
		return store, nil
	default:
		return nil, nil
	}
}
