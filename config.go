package goTrust

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MrEthical07/goTrust/credential"
	"github.com/MrEthical07/goTrust/hashing"
	"github.com/MrEthical07/goTrust/metadata/blobstore"
	"gopkg.in/yaml.v3"
)

// Config holds every engine setting.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Hashing     HashingConfig               `yaml:"hashing"`
	Credentials CredentialsConfig           `yaml:"credentials"`
	Metadata    MetadataConfig              `yaml:"metadata"`
	Audit       AuditConfig                 `yaml:"audit"`
	Metrics     MetricsConfig               `yaml:"metrics"`
	Throttle    ThrottleConfig              `yaml:"throttle"`
	Postgres    credential.PostgresConfig   `yaml:"postgres"`
	ObjectStore blobstore.ObjectStoreConfig `yaml:"object_store"`
}

/*
====================================
HASHING CONFIG
====================================
*/

// Algorithm identifiers accepted by HashingConfig.DefaultAlgorithm.
const (
	AlgorithmPBKDF2   = "pbkdf2"
	AlgorithmArgon2id = "argon2id"
)

// HashingConfig selects the algorithm for new hashes and its costs.
type HashingConfig struct {
	DefaultAlgorithm string           `yaml:"default_algorithm"`
	PBKDF2Iterations int              `yaml:"pbkdf2_iterations"`
	Argon2           Argon2CostConfig `yaml:"argon2"`
	UpgradeOnVerify  bool             `yaml:"upgrade_on_verify"`
	LogParamFallback bool             `yaml:"log_param_fallback"`
}

// Argon2CostConfig mirrors hashing.Argon2Config for YAML decoding.
type Argon2CostConfig struct {
	Memory      uint32 `yaml:"memory"`
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
	KeyLength   uint32 `yaml:"key_length"`
}

func (c Argon2CostConfig) hashingConfig() hashing.Argon2Config {
	return hashing.Argon2Config{
		Memory:      c.Memory,
		Time:        c.Time,
		Parallelism: c.Parallelism,
		KeyLength:   c.KeyLength,
	}
}

/*
====================================
STORAGE CONFIG
====================================
*/

// Credential and blob backends.
const (
	BackendNone     = ""
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendObject   = "object"
)

// CredentialsConfig selects where password hashes are stored.
type CredentialsConfig struct {
	Backend     string `yaml:"backend"`
	RedisPrefix string `yaml:"redis_prefix"`
}

// MetadataConfig selects where statement blobs are read from.
type MetadataConfig struct {
	BlobBackend string        `yaml:"blob_backend"`
	RedisPrefix string        `yaml:"redis_prefix"`
	BlobTTL     time.Duration `yaml:"blob_ttl"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// ThrottleConfig limits failed password verifications per user in a fixed
// window. It needs a Redis client.
type ThrottleConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures int           `yaml:"max_failures"`
	Window      time.Duration `yaml:"window"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// DefaultConfig returns the configuration used by New.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	argon := hashing.DefaultArgon2Config()
	return Config{
		Hashing: HashingConfig{
			DefaultAlgorithm: AlgorithmPBKDF2,
			PBKDF2Iterations: hashing.DefaultPBKDF2Iterations,
			Argon2: Argon2CostConfig{
				Memory:      argon.Memory,
				Time:        argon.Time,
				Parallelism: argon.Parallelism,
				KeyLength:   argon.KeyLength,
			},
			UpgradeOnVerify:  true,
			LogParamFallback: true,
		},
		Credentials: CredentialsConfig{
			Backend:     BackendNone,
			RedisPrefix: "cred",
		},
		Metadata: MetadataConfig{
			BlobBackend: BackendNone,
			RedisPrefix: "mds",
			BlobTTL:     0,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Throttle: ThrottleConfig{
			Enabled:     false,
			MaxFailures: 5,
			Window:      15 * time.Minute,
		},
	}
}

// LoadConfigFile reads a YAML file over DefaultConfig and validates the result.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config file not found: %s", path)
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
// Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := defaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Hashing
	switch c.Hashing.DefaultAlgorithm {
	case AlgorithmPBKDF2, AlgorithmArgon2id:
	default:
		return fmt.Errorf("unsupported hashing algorithm %q", c.Hashing.DefaultAlgorithm)
	}
	if c.Hashing.PBKDF2Iterations < 1 {
		return errors.New("Hashing PBKDF2Iterations must be > 0")
	}
	if _, err := hashing.NewArgon2(c.Hashing.Argon2.hashingConfig()); err != nil {
		return fmt.Errorf("Hashing Argon2: %w", err)
	}

	// Credentials
	switch c.Credentials.Backend {
	case BackendNone, BackendRedis:
	case BackendPostgres:
		if err := c.Postgres.Validate(); err != nil {
			return fmt.Errorf("Postgres: %w", err)
		}
	default:
		return fmt.Errorf("unsupported credential backend %q", c.Credentials.Backend)
	}

	// Metadata
	switch c.Metadata.BlobBackend {
	case BackendNone, BackendRedis:
	case BackendObject:
		if err := c.ObjectStore.Validate(); err != nil {
			return fmt.Errorf("ObjectStore: %w", err)
		}
	default:
		return fmt.Errorf("unsupported metadata blob backend %q", c.Metadata.BlobBackend)
	}
	if c.Metadata.BlobTTL < 0 {
		return errors.New("Metadata BlobTTL must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Throttle
	if c.Throttle.Enabled {
		if c.Throttle.MaxFailures <= 0 {
			return errors.New("Throttle MaxFailures must be > 0 when throttling is enabled")
		}
		if c.Throttle.Window <= 0 {
			return errors.New("Throttle Window must be > 0 when throttling is enabled")
		}
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

/*
====================================
LINT
====================================
*/

// LintWarning is an advisory about a valid but risky setting.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of Config.Lint.
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}

// Lint reports settings that are accepted by Validate but weaken the deployment.
func (c Config) Lint() LintWarnings {
	var ws LintWarnings

	if c.Hashing.DefaultAlgorithm == AlgorithmPBKDF2 && c.Hashing.PBKDF2Iterations < hashing.DefaultPBKDF2Iterations {
		ws = append(ws, LintWarning{
			Code:    "pbkdf2_iterations_low",
			Message: fmt.Sprintf("PBKDF2 iterations %d are below %d", c.Hashing.PBKDF2Iterations, hashing.DefaultPBKDF2Iterations),
		})
	}
	if !c.Hashing.UpgradeOnVerify {
		ws = append(ws, LintWarning{
			Code:    "rehash_disabled",
			Message: "stored hashes are never upgraded to the current algorithm or cost",
		})
	}
	if !c.Hashing.LogParamFallback {
		ws = append(ws, LintWarning{
			Code:    "param_fallback_silent",
			Message: "malformed hash cost parameters fall back to defaults without a log line",
		})
	}
	if !c.Audit.Enabled {
		ws = append(ws, LintWarning{
			Code:    "audit_disabled",
			Message: "authenticator rejections and password failures are not audited",
		})
	}
	if c.Metadata.BlobBackend == BackendRedis && c.Metadata.BlobTTL == 0 {
		ws = append(ws, LintWarning{
			Code:    "blob_ttl_unbounded",
			Message: "cached statement blobs never expire",
		})
	}

	return ws
}
