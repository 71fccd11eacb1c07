package hashing

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const minSaltLength = 16

// Strategy selects an Algorithm by the id embedded in a persisted record.
//
// A Strategy is built once at startup and is safe for concurrent use.
type Strategy struct {
	algorithms map[string]Algorithm
	defaultID  string
	saltLength int
}

type paramDefaulter interface {
	DefaultParams() map[string]string
}

// NewStrategy registers algs and selects defaultID for new records. Duplicate ids
// or an unregistered default are configuration errors.
func NewStrategy(defaultID string, algs ...Algorithm) (*Strategy, error) {
	s := &Strategy{
		algorithms: make(map[string]Algorithm, len(algs)),
		defaultID:  defaultID,
		saltLength: minSaltLength,
	}

	for _, alg := range algs {
		if alg == nil {
			return nil, errors.New("nil hashing algorithm")
		}
		if _, exists := s.algorithms[alg.ID()]; exists {
			return nil, fmt.Errorf("duplicate hashing algorithm %q", alg.ID())
		}
		s.algorithms[alg.ID()] = alg
	}

	if _, ok := s.algorithms[defaultID]; !ok {
		return nil, fmt.Errorf("%w: default %q is not registered", ErrUnknownAlgorithm, defaultID)
	}

	return s, nil
}

// DefaultID returns the id used for new records.
func (s *Strategy) DefaultID() string {
	return s.defaultID
}

// Algorithm looks up a registered algorithm.
func (s *Strategy) Algorithm(id string) (Algorithm, bool) {
	alg, ok := s.algorithms[id]
	return alg, ok
}

// Hash derives a hash for password and returns the full persisted record.
// Parameters the algorithm does not recognize are dropped from the output.
func (s *Strategy) Hash(id string, params map[string]string, salt, password string) (string, error) {
	alg, ok := s.algorithms[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, id)
	}

	record := HashString{ID: id, Params: recognized(alg, params), Salt: salt}
	hash, err := alg.Hash(record, password)
	if err != nil {
		return "", err
	}
	record.Hash = hash

	return record.String(), nil
}

// HashNew hashes password with the default algorithm, its default parameters
// and a fresh random salt.
func (s *Strategy) HashNew(password string) (string, error) {
	salt, err := NewSalt(s.saltLength)
	if err != nil {
		return "", err
	}

	var params map[string]string
	if d, ok := s.algorithms[s.defaultID].(paramDefaulter); ok {
		params = d.DefaultParams()
	}

	return s.Hash(s.defaultID, params, salt, password)
}

// Verify re-derives the hash in encoded and compares it in constant time.
func (s *Strategy) Verify(encoded, password string) (bool, error) {
	record, err := ParseHashString(encoded)
	if err != nil {
		return false, err
	}

	alg, ok := s.algorithms[record.ID]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, record.ID)
	}

	computed, err := alg.Hash(record, password)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare([]byte(computed), []byte(strings.TrimRight(record.Hash, "="))) == 1, nil
}

// NeedsRehash reports whether encoded was produced by another algorithm or with
// a numeric cost parameter lower than the current default.
func (s *Strategy) NeedsRehash(encoded string) (bool, error) {
	record, err := ParseHashString(encoded)
	if err != nil {
		return false, err
	}
	if record.ID != s.defaultID {
		return true, nil
	}

	d, ok := s.algorithms[s.defaultID].(paramDefaulter)
	if !ok {
		return false, nil
	}

	for key, want := range d.DefaultParams() {
		wantN, err := strconv.ParseUint(want, 10, 64)
		if err != nil {
			continue
		}
		raw, _ := record.Param(key)
		got, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || got < wantN {
			return true, nil
		}
	}

	return false, nil
}

// NewSalt returns n random bytes encoded as standard base64.
func NewSalt(n int) (string, error) {
	if n < minSaltLength {
		n = minSaltLength
	}

	salt := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

func recognized(alg Algorithm, params map[string]string) map[string]string {
	if len(params) == 0 {
		return nil
	}

	out := make(map[string]string, len(params))
	for _, key := range alg.Params() {
		if v, ok := params[key]; ok {
			out[key] = v
		}
	}
	return out
}
