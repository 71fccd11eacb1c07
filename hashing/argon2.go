package hashing

import (
	"encoding/base64"
	"errors"
	"math"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2ID = "argon2id"

	// ParamMemory is the Argon2 memory cost in KiB.
	ParamMemory = "m"
	// ParamTime is the Argon2 pass count.
	ParamTime = "t"
	// ParamParallelism is the Argon2 lane count.
	ParamParallelism = "p"

	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minKeyLength   uint32 = 16
)

// Argon2Config holds the defaults used when a record omits a parameter.
//
// Argon2Config instances are intended to be configured during initialization and then treated as immutable.
type Argon2Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	KeyLength   uint32
}

// DefaultArgon2Config returns the recommended Argon2id defaults.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		KeyLength:   32,
	}
}

// Argon2 derives keys with Argon2id.
type Argon2 struct {
	config Argon2Config
	opts   options
}

// NewArgon2 validates cfg and returns an Argon2id algorithm.
//
// NewArgon2 may return an error when the defaults are below the safe minimums.
func NewArgon2(cfg Argon2Config, opts ...Option) (*Argon2, error) {
	if err := validateArgon2Config(cfg); err != nil {
		return nil, err
	}

	return &Argon2{config: cfg, opts: applyOptions(opts)}, nil
}

func (a *Argon2) ID() string {
	return argon2ID
}

func (a *Argon2) Params() []string {
	return []string{ParamMemory, ParamTime, ParamParallelism}
}

// Hash derives an Argon2id key. The key length follows the stored hash when the
// record carries one, so verification re-derives the same size.
func (a *Argon2) Hash(record HashString, password string) (string, error) {
	memory := a.opts.positiveParam(argon2ID, record, ParamMemory, uint64(a.config.Memory), uint64(minMemoryKB), math.MaxUint32)
	timeCost := a.opts.positiveParam(argon2ID, record, ParamTime, uint64(a.config.Time), uint64(minTimeCost), math.MaxUint32)
	parallelism := a.opts.positiveParam(argon2ID, record, ParamParallelism, uint64(a.config.Parallelism), uint64(minParallelism), math.MaxUint8)

	salt, err := decodeSalt(record)
	if err != nil {
		return "", err
	}

	keyLength := a.config.KeyLength
	if record.Hash != "" {
		if stored, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(record.Hash, "=")); err == nil && uint32(len(stored)) >= minKeyLength {
			keyLength = uint32(len(stored))
		}
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		uint32(timeCost),
		uint32(memory),
		uint8(parallelism),
		keyLength,
	)
	return encodeKey(key), nil
}

// DefaultParams returns the parameter map written into new records.
func (a *Argon2) DefaultParams() map[string]string {
	return map[string]string{
		ParamMemory:      formatUint(uint64(a.config.Memory)),
		ParamTime:        formatUint(uint64(a.config.Time)),
		ParamParallelism: formatUint(uint64(a.config.Parallelism)),
	}
}

func validateArgon2Config(cfg Argon2Config) error {
	if cfg.Memory < minMemoryKB {
		return errors.New("argon2 memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return errors.New("argon2 time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("argon2 parallelism must be >= 1")
	}
	if cfg.KeyLength < minKeyLength {
		return errors.New("argon2 key length must be >= 16")
	}

	return nil
}
