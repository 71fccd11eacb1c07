package metadata

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrUnknownAuthenticator is returned when the catalog has no entry for a key.
	ErrUnknownAuthenticator = errors.New("unknown authenticator")
	// ErrCatalogEmpty is returned before the first snapshot is published.
	ErrCatalogEmpty = errors.New("metadata catalog not published")
	// ErrBlobNotFound is returned by a BlobSource with no blob for a key.
	ErrBlobNotFound = errors.New("metadata statement blob not found")
)

// BlobSource returns the raw (base64) statement blob for a catalog key.
type BlobSource interface {
	Blob(ctx context.Context, key string) ([]byte, error)
}

// Snapshot is an immutable set of entries built from one catalog.
type Snapshot struct {
	serial     int
	nextUpdate string
	entries    map[string]*Entry
	failures   int
}

// NewSnapshot indexes entries by key. The map is copied.
func NewSnapshot(serial int, nextUpdate string, entries map[string]*Entry) *Snapshot {
	s := &Snapshot{
		serial:     serial,
		nextUpdate: nextUpdate,
		entries:    make(map[string]*Entry, len(entries)),
	}
	for k, e := range entries {
		if e == nil {
			continue
		}
		s.entries[k] = e
		if e.failure != "" {
			s.failures++
		}
	}
	return s
}

func (s *Snapshot) Serial() int        { return s.serial }
func (s *Snapshot) NextUpdate() string { return s.nextUpdate }
func (s *Snapshot) Len() int           { return len(s.entries) }

// Failures counts entries that carry a recorded failure.
func (s *Snapshot) Failures() int { return s.failures }

// Lookup returns the entry for key.
func (s *Snapshot) Lookup(key string) (*Entry, bool) {
	e, ok := s.entries[key]
	return e, ok
}

// Ingest builds an entry for every catalog record in one pass. A record whose
// blob is missing or malformed still produces an entry, carrying the failure,
// so one bad record never aborts a refresh. Only context cancellation and a
// nil TOC or source are returned as errors.
func Ingest(ctx context.Context, toc *TOC, blobs BlobSource, opts ...Option) (*Snapshot, error) {
	if toc == nil {
		return nil, fmt.Errorf("%w: nil TOC", ErrInvalidTOC)
	}
	if blobs == nil {
		return nil, errors.New("nil metadata blob source")
	}

	entries := make(map[string]*Entry, len(toc.Entries))
	for i := range toc.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record := &toc.Entries[i]
		key := record.Key()
		if key == "" {
			continue
		}

		entries[key] = ingestEntry(ctx, record, key, blobs, opts)
	}

	return NewSnapshot(toc.No, toc.NextUpdate, entries), nil
}

func ingestEntry(ctx context.Context, record *TOCEntry, key string, blobs BlobSource, opts []Option) *Entry {
	raw, err := blobs.Blob(ctx, key)
	if err != nil {
		return failedEntry(record, "MDS statement unavailable: "+err.Error(), opts)
	}

	entry, err := NewEntryFromBlob(record, raw, "", opts...)
	if err != nil {
		return failedEntry(record, "MDS statement rejected: "+err.Error(), opts)
	}
	return entry
}

func failedEntry(record *TOCEntry, reason string, opts []Option) *Entry {
	return newEntry(Statement{}, record.clone(), reason, opts)
}

// Catalog publishes snapshots atomically; readers never observe a partially
// built set of entries.
type Catalog struct {
	current atomic.Pointer[Snapshot]
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Publish replaces the current snapshot.
func (c *Catalog) Publish(s *Snapshot) error {
	if s == nil {
		return errors.New("nil metadata snapshot")
	}
	c.current.Store(s)
	return nil
}

// Snapshot returns the current snapshot, or nil before the first Publish.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Lookup returns the entry for key from the current snapshot.
func (c *Catalog) Lookup(key string) (*Entry, error) {
	s := c.current.Load()
	if s == nil {
		return nil, ErrCatalogEmpty
	}
	e, ok := s.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAuthenticator, key)
	}
	return e, nil
}

// Check looks up key and evaluates the entry as of now.
func (c *Catalog) Check(key string) (Verdict, error) {
	e, err := c.Lookup(key)
	if err != nil {
		return Verdict{}, err
	}
	return e.CheckValid()
}
