package metadata

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

type mapBlobs map[string][]byte

func (m mapBlobs) Blob(_ context.Context, key string) ([]byte, error) {
	raw, ok := m[key]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return raw, nil
}

func catalogTOC(t *testing.T) (*TOC, mapBlobs) {
	t.Helper()

	good := encodeBlob(t, testStatement())
	revokedStmt := testStatement()
	revokedStmt["aaguid"] = "revoked-aaguid"
	revoked := encodeBlob(t, revokedStmt)

	toc := &TOC{
		No:         7,
		NextUpdate: "2030-01-01",
		Entries: []TOCEntry{
			{AAGUID: "good-aaguid", Hash: referenceHash(good), StatusReports: []StatusReport{report(-10, StatusFIDOCertified)}},
			{AAGUID: "revoked-aaguid", Hash: referenceHash(revoked), StatusReports: []StatusReport{report(-2, StatusRevoked)}},
			{AAGUID: "tampered-aaguid", Hash: referenceHash([]byte("other")), StatusReports: []StatusReport{report(-1, StatusFIDOCertified)}},
			{AAGUID: "missing-aaguid", Hash: "AAAA", StatusReports: []StatusReport{report(-1, StatusFIDOCertified)}},
			{AAID: "", StatusReports: []StatusReport{report(-1, StatusFIDOCertified)}},
		},
	}
	blobs := mapBlobs{
		"good-aaguid":     good,
		"revoked-aaguid":  revoked,
		"tampered-aaguid": good,
	}
	return toc, blobs
}

func TestIngestBuildsEveryKeyedRecord(t *testing.T) {
	toc, blobs := catalogTOC(t)

	snap, err := Ingest(context.Background(), toc, blobs)
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}
	if snap.Serial() != 7 || snap.NextUpdate() != "2030-01-01" {
		t.Fatalf("unexpected snapshot header serial=%d next=%q", snap.Serial(), snap.NextUpdate())
	}
	if snap.Len() != 4 {
		t.Fatalf("expected 4 entries, got %d", snap.Len())
	}
	if snap.Failures() != 2 {
		t.Fatalf("expected 2 failed entries, got %d", snap.Failures())
	}

	tampered, ok := snap.Lookup("tampered-aaguid")
	if !ok {
		t.Fatal("expected tampered entry to be present")
	}
	if tampered.Failure() != HashMismatchReason {
		t.Fatalf("unexpected tampered failure %q", tampered.Failure())
	}

	missing, ok := snap.Lookup("missing-aaguid")
	if !ok {
		t.Fatal("expected missing entry to be present")
	}
	if !strings.HasPrefix(missing.Failure(), "MDS statement unavailable: ") {
		t.Fatalf("unexpected missing failure %q", missing.Failure())
	}
}

func TestIngestRecordsMalformedBlob(t *testing.T) {
	toc := &TOC{Entries: []TOCEntry{{AAGUID: "bad", StatusReports: []StatusReport{report(-1, StatusFIDOCertified)}}}}
	snap, err := Ingest(context.Background(), toc, mapBlobs{"bad": []byte("!!not base64!!")})
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}
	e, _ := snap.Lookup("bad")
	if !strings.HasPrefix(e.Failure(), "MDS statement rejected: ") {
		t.Fatalf("unexpected failure %q", e.Failure())
	}
	if _, err := e.CheckValid(); !errors.Is(err, ErrEntryRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestIngestArguments(t *testing.T) {
	if _, err := Ingest(context.Background(), nil, mapBlobs{}); !errors.Is(err, ErrInvalidTOC) {
		t.Fatalf("expected ErrInvalidTOC, got %v", err)
	}
	if _, err := Ingest(context.Background(), &TOC{}, nil); err == nil {
		t.Fatal("expected error for nil blob source")
	}
}

func TestIngestStopsOnCancelledContext(t *testing.T) {
	toc, blobs := catalogTOC(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Ingest(ctx, toc, blobs); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCatalogCheck(t *testing.T) {
	c := NewCatalog()
	if _, err := c.Check("good-aaguid"); !errors.Is(err, ErrCatalogEmpty) {
		t.Fatalf("expected ErrCatalogEmpty, got %v", err)
	}
	if c.Snapshot() != nil {
		t.Fatal("expected nil snapshot before publish")
	}

	toc, blobs := catalogTOC(t)
	snap, err := Ingest(context.Background(), toc, blobs)
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}
	if err := c.Publish(snap); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	v, err := c.Check("good-aaguid")
	if err != nil {
		t.Fatalf("expected good authenticator to pass, got %v", err)
	}
	if v.Status != StatusFIDOCertified || v.Tier != TierNeutral {
		t.Fatalf("unexpected verdict %+v", v)
	}

	var te *TrustError
	if _, err := c.Check("revoked-aaguid"); !errors.As(err, &te) || te.Kind != KindInvalidStatus {
		t.Fatalf("expected invalid status rejection, got %v", err)
	}
	if _, err := c.Check("tampered-aaguid"); !errors.As(err, &te) || te.Kind != KindRecordedFailure {
		t.Fatalf("expected recorded failure rejection, got %v", err)
	}
	if _, err := c.Check("nobody"); !errors.Is(err, ErrUnknownAuthenticator) {
		t.Fatalf("expected ErrUnknownAuthenticator, got %v", err)
	}
}

func TestCatalogPublishNil(t *testing.T) {
	if err := NewCatalog().Publish(nil); err == nil {
		t.Fatal("expected error publishing nil snapshot")
	}
}

func TestCatalogConcurrentPublishAndLookup(t *testing.T) {
	c := NewCatalog()
	toc, blobs := catalogTOC(t)
	snap, err := Ingest(context.Background(), toc, blobs)
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}
	if err := c.Publish(snap); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Publish(NewSnapshot(j, "", map[string]*Entry{"good-aaguid": mustLookup(c, "good-aaguid")}))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := c.Check("good-aaguid"); err != nil {
					t.Errorf("Check error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func mustLookup(c *Catalog, key string) *Entry {
	e, err := c.Lookup(key)
	if err != nil {
		panic(err)
	}
	return e
}
