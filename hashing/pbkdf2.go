package hashing

import (
	"crypto/sha512"
	"math"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2ID = "pbkdf2"
	// DefaultPBKDF2Iterations is used when a record has no usable "it" parameter.
	DefaultPBKDF2Iterations = 10000
	// PBKDF2KeyLength is the derived key size in bytes (512 bits).
	PBKDF2KeyLength = 64
	// ParamIterations is the PBKDF2 iteration count parameter key.
	ParamIterations = "it"
)

// PBKDF2 derives keys with PBKDF2-HMAC-SHA-512.
type PBKDF2 struct {
	iterations int
	opts       options
}

// NewPBKDF2 returns a PBKDF2 algorithm. iterations is the cost written into new
// records; values < 1 select DefaultPBKDF2Iterations.
func NewPBKDF2(iterations int, opts ...Option) *PBKDF2 {
	if iterations < 1 {
		iterations = DefaultPBKDF2Iterations
	}
	return &PBKDF2{iterations: iterations, opts: applyOptions(opts)}
}

func (p *PBKDF2) ID() string {
	return pbkdf2ID
}

func (p *PBKDF2) Params() []string {
	return []string{ParamIterations}
}

// Hash derives a 64-byte key from password and the record's salt. A missing or
// malformed "it" parameter silently resolves to DefaultPBKDF2Iterations; a
// missing salt is an error.
func (p *PBKDF2) Hash(record HashString, password string) (string, error) {
	iterations := p.opts.positiveParam(pbkdf2ID, record, ParamIterations, DefaultPBKDF2Iterations, 1, math.MaxInt32)

	salt, err := decodeSalt(record)
	if err != nil {
		return "", err
	}

	key := pbkdf2.Key([]byte(password), salt, int(iterations), PBKDF2KeyLength, sha512.New)
	return encodeKey(key), nil
}

// DefaultParams returns the parameter map written into new records.
func (p *PBKDF2) DefaultParams() map[string]string {
	return map[string]string{ParamIterations: formatUint(uint64(p.iterations))}
}
