package blobstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goTrust/metadata"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) (*RedisBlobStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisBlobStore(rdb, ""), mr
}

func TestRedisBlobStorePutAndBlob(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "aaguid-1", []byte("eyJhIjoxfQ"), 0); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if !mr.Exists("mds:aaguid-1") {
		t.Fatal("expected blob under default prefix")
	}

	raw, err := store.Blob(ctx, "aaguid-1")
	if err != nil {
		t.Fatalf("Blob error: %v", err)
	}
	if string(raw) != "eyJhIjoxfQ" {
		t.Fatalf("unexpected blob %q", raw)
	}

	if err := store.Delete(ctx, "aaguid-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := store.Blob(ctx, "aaguid-1"); !errors.Is(err, metadata.ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound after delete, got %v", err)
	}
}

func TestRedisBlobStoreTTL(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "aaguid-2", []byte("blob"), time.Minute); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.Blob(ctx, "aaguid-2"); !errors.Is(err, metadata.ErrBlobNotFound) {
		t.Fatalf("expected expired blob to be missing, got %v", err)
	}
}

func TestRedisBlobStoreRejectsEmptyKey(t *testing.T) {
	store, _ := newTestRedisStore(t)
	if err := store.Put(context.Background(), "", []byte("x"), 0); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestRedisBlobStoreUnavailable(t *testing.T) {
	store, mr := newTestRedisStore(t)
	mr.Close()

	if _, err := store.Blob(context.Background(), "aaguid-1"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

func TestRedisBlobStoreFeedsIngest(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	// {"description":"Key","schema":3}
	blob := []byte("eyJkZXNjcmlwdGlvbiI6IktleSIsInNjaGVtYSI6M30")
	if err := store.Put(ctx, "aaguid-3", blob, 0); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	toc := &metadata.TOC{Entries: []metadata.TOCEntry{
		{AAGUID: "aaguid-3", StatusReports: []metadata.StatusReport{{EffectiveDate: time.Now().AddDate(0, 0, -1), Status: metadata.StatusFIDOCertified}}},
		{AAGUID: "aaguid-4", StatusReports: []metadata.StatusReport{{EffectiveDate: time.Now().AddDate(0, 0, -1), Status: metadata.StatusFIDOCertified}}},
	}}
	snap, err := metadata.Ingest(ctx, toc, store)
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}

	present, _ := snap.Lookup("aaguid-3")
	if present.Version() != 3 {
		t.Fatalf("expected schema 3, got %d", present.Version())
	}
	missing, _ := snap.Lookup("aaguid-4")
	if missing.Failure() == "" {
		t.Fatal("expected deferred failure for missing blob")
	}
}
