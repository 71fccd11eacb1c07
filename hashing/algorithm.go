package hashing

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrMissingSalt is returned when a hash record carries no salt. A record
	// without salt is corrupt; it is never defaulted.
	ErrMissingSalt = errors.New("hash string salt is missing")
	// ErrInvalidSalt is returned when the salt is not base64.
	ErrInvalidSalt = errors.New("hash string salt is not valid base64")
	// ErrUnknownAlgorithm is returned when no registered algorithm matches a record id.
	ErrUnknownAlgorithm = errors.New("unknown hashing algorithm")
)

// Algorithm derives a credential hash from a persisted record and a plaintext password.
//
// Implementations are stateless and safe for concurrent use.
type Algorithm interface {
	// ID is the tag embedded in persisted records.
	ID() string
	// Params lists the parameter keys the algorithm understands.
	Params() []string
	// Hash returns the encoded derived key (base64, no padding).
	Hash(record HashString, password string) (string, error)
}

// FallbackFunc is called when a recognized parameter is missing or malformed and
// the algorithm default was used instead.
type FallbackFunc func(algorithm, key, raw string)

// Option configures an algorithm.
type Option func(*options)

type options struct {
	onFallback FallbackFunc
}

// WithFallbackHook registers a diagnostic callback for parameter fallbacks.
func WithFallbackHook(fn FallbackFunc) Option {
	return func(o *options) {
		o.onFallback = fn
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// positiveParam resolves a numeric parameter, falling back to def when the key
// is absent, unparsable or outside [lo, hi]. One leading "+" is accepted.
func (o options) positiveParam(alg string, record HashString, key string, def, lo, hi uint64) uint64 {
	raw, ok := record.Param(key)
	if ok {
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(raw), "+"), 10, 64)
		if err == nil && v >= lo && v <= hi {
			return v
		}
	}

	if o.onFallback != nil {
		o.onFallback(alg, key, raw)
	}
	return def
}

func decodeSalt(record HashString) ([]byte, error) {
	if record.Salt == "" {
		return nil, ErrMissingSalt
	}

	salt, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(record.Salt, "="))
	if err != nil {
		return nil, ErrInvalidSalt
	}
	return salt, nil
}

func encodeKey(key []byte) string {
	return base64.RawStdEncoding.EncodeToString(key)
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
