package metadata

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
)

// HashMismatchReason is recorded when a statement blob does not match the
// digest published in its catalog entry.
const HashMismatchReason = "MDS entry hash did not match corresponding hash in MDS TOC"

var (
	// ErrNilStatement is returned when an entry is built without a statement.
	ErrNilStatement = errors.New("metadata statement cannot be nil")
	// ErrNilTOCEntry is returned when a catalog-backed entry is built without its catalog record.
	ErrNilTOCEntry = errors.New("metadata TOC entry cannot be nil")
	// ErrMalformedStatement is returned when a raw statement blob is not base64 encoded JSON.
	ErrMalformedStatement = errors.New("malformed metadata statement")
)

// Option configures an Entry.
type Option func(*Entry)

// WithLogger routes advisories to logger instead of the standard logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Entry) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Entry is an immutable, validated view of one authenticator's metadata.
//
// An Entry may carry a failure recorded at construction (integrity mismatch or
// an upstream error). The failure is never cleared and takes precedence over
// the status history in CheckValid. Entries are safe for concurrent use.
type Entry struct {
	statement Statement
	toc       *TOCEntry
	version   int
	failure   string
	logger    *log.Logger
}

// NewStatementEntry builds an entry from a bare statement. It has no status
// history and is trusted unconditionally; use it only for statements whose
// source is already trusted.
func NewStatementEntry(statement Statement, opts ...Option) (*Entry, error) {
	if statement == nil {
		return nil, ErrNilStatement
	}

	return newEntry(statement.Clone(), nil, "", opts), nil
}

// NewEntry builds an entry from a catalog record and an already parsed
// statement. failure, when non-empty, is an integrity verdict reached upstream.
func NewEntry(toc *TOCEntry, statement Statement, failure string, opts ...Option) (*Entry, error) {
	if toc == nil {
		return nil, ErrNilTOCEntry
	}
	if statement == nil {
		return nil, ErrNilStatement
	}

	return newEntry(statement.Clone(), toc.clone(), failure, opts), nil
}

// NewEntryFromBlob builds an entry from a catalog record and the raw base64
// statement blob. Without an upstream failure the SHA-256 digest of raw is
// compared with the catalog's reference hash; a mismatch is recorded on the
// entry and reported by CheckValid rather than returned here.
func NewEntryFromBlob(toc *TOCEntry, raw []byte, failure string, opts ...Option) (*Entry, error) {
	if toc == nil {
		return nil, ErrNilTOCEntry
	}
	if len(raw) == 0 {
		return nil, ErrNilStatement
	}

	statement, err := decodeStatement(raw)
	if err != nil {
		return nil, err
	}

	if failure == "" && !digestMatches(raw, toc.Hash) {
		failure = HashMismatchReason
	}

	return newEntry(statement, toc.clone(), failure, opts), nil
}

func newEntry(statement Statement, toc *TOCEntry, failure string, opts []Option) *Entry {
	e := &Entry{
		statement: statement,
		toc:       toc,
		version:   statement.Schema(),
		failure:   failure,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func decodeStatement(raw []byte) (Statement, error) {
	decoded, err := decodeBase64(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStatement, err)
	}

	var statement Statement
	if err := json.Unmarshal(decoded, &statement); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStatement, err)
	}
	if statement == nil {
		return nil, ErrNilStatement
	}
	return statement, nil
}

func digestMatches(raw []byte, reference string) bool {
	want, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(reference, "="))
	if err != nil {
		return false
	}
	got := sha256.Sum256(raw)
	return subtle.ConstantTimeCompare(got[:], want) == 1
}

// decodeBase64 accepts standard or URL-safe alphabets, padded or not.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	if strings.ContainsAny(s, "-_") {
		return base64.RawURLEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

// Statement returns a copy of the metadata statement.
func (e *Entry) Statement() Statement {
	return e.statement.Clone()
}

// TOCEntry returns a copy of the catalog record, or nil for statement-only entries.
func (e *Entry) TOCEntry() *TOCEntry {
	if e.toc == nil {
		return nil
	}
	return e.toc.clone()
}

// Version is the statement schema version (2 when unspecified).
func (e *Entry) Version() int {
	return e.version
}

// Failure returns the failure recorded at construction, if any.
func (e *Entry) Failure() string {
	return e.failure
}
