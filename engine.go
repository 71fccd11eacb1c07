package goTrust

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/MrEthical07/goTrust/credential"
	"github.com/MrEthical07/goTrust/hashing"
	"github.com/MrEthical07/goTrust/internal/audit"
	"github.com/MrEthical07/goTrust/internal/limiters"
	"github.com/MrEthical07/goTrust/internal/rate"
	"github.com/MrEthical07/goTrust/metadata"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Engine hashes and verifies passwords and gates authenticators on their
// metadata status. Build one with New().Build(); it is safe for concurrent use.
type Engine struct {
	config   Config
	strategy *hashing.Strategy
	store    credential.Store
	blobs    metadata.BlobSource
	catalog  *metadata.Catalog
	limiter  *limiters.VerifyLimiter
	dummy    string
	pgPool   *pgxpool.Pool
	audit    *audit.Dispatcher
	metrics  *Metrics
	logger   *log.Logger
}

// Close drains pending audit events and releases a Postgres pool the
// engine opened itself.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.pgPool != nil {
		e.pgPool.Close()
		e.pgPool = nil
	}
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByType breaks AuditDropped down by event type.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByType()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observeHash(start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.Inc(MetricHashComputed)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricHashLatency, time.Since(start))
	}
}

/*
====================================
PASSWORD HASHING
====================================
*/

// HashPassword derives a full hash string for password with the named
// algorithm, parameters and salt. Parameters the algorithm does not recognize
// are dropped from the output.
func (e *Engine) HashPassword(id string, params map[string]string, salt, password string) (string, error) {
	if e == nil || e.strategy == nil {
		return "", ErrEngineNotReady
	}

	start := time.Now()
	encoded, err := e.strategy.Hash(id, params, salt, password)
	e.observeHash(start)
	if err != nil {
		return "", err
	}
	return encoded, nil
}

// NewHash hashes password with the default algorithm, its configured costs
// and a fresh random salt.
func (e *Engine) NewHash(password string) (string, error) {
	if e == nil || e.strategy == nil {
		return "", ErrEngineNotReady
	}

	hs, err := e.hashNew(password)
	if err != nil {
		return "", err
	}
	return hs.String(), nil
}

// VerifyHash checks password against an encoded hash string without touching
// the credential store.
func (e *Engine) VerifyHash(encoded, password string) (bool, error) {
	if e == nil || e.strategy == nil {
		return false, ErrEngineNotReady
	}

	start := time.Now()
	ok, err := e.strategy.Verify(encoded, password)
	e.observeHash(start)
	return ok, err
}

// SetPassword stores a fresh hash of password for userID using the default
// algorithm and a new random salt.
func (e *Engine) SetPassword(ctx context.Context, userID, password string) error {
	if e == nil || e.strategy == nil {
		return ErrEngineNotReady
	}
	if e.store == nil {
		return ErrNoCredentialStore
	}

	next, err := e.hashNew(password)
	if err != nil {
		return err
	}

	if err := e.store.Put(ctx, userID, next); err != nil {
		err = storeError(err)
		e.emitAudit(ctx, auditEventPasswordSet, false, userID, "", err, nil)
		return err
	}

	e.metricInc(MetricPasswordSet)
	e.emitAudit(ctx, auditEventPasswordSet, true, userID, "", nil, func() map[string]string {
		return map[string]string{"algorithm": next.ID}
	})
	return nil
}

// VerifyPassword checks password against the stored hash for userID. An
// unknown user and a wrong password both return ErrInvalidCredentials. On
// success the stored hash is upgraded when it no longer matches the default
// algorithm or cost and UpgradeOnVerify is set. With throttling enabled, a
// user who has spent the failure budget gets ErrVerifyThrottled without any
// hash being derived.
func (e *Engine) VerifyPassword(ctx context.Context, userID, password string) error {
	if e == nil || e.strategy == nil {
		return ErrEngineNotReady
	}
	if e.store == nil {
		return ErrNoCredentialStore
	}

	if err := e.limiter.Check(ctx, userID); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			err = ErrVerifyThrottled
			e.metricInc(MetricPasswordVerifyThrottled)
		} else {
			err = fmt.Errorf("verify throttle: %w", err)
		}
		e.emitAudit(ctx, auditEventPasswordVerify, false, userID, "", err, nil)
		return err
	}

	stored, err := e.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			err = ErrInvalidCredentials
			e.deriveDummy(password)
			e.recordVerifyFailure(ctx, userID)
		} else if !errors.Is(err, hashing.ErrInvalidHashString) {
			err = storeError(err)
		}
		e.metricInc(MetricPasswordVerifyFailure)
		e.emitAudit(ctx, auditEventPasswordVerify, false, userID, "", err, nil)
		return err
	}

	start := time.Now()
	ok, err := e.strategy.Verify(stored.String(), password)
	e.observeHash(start)
	if err != nil {
		e.metricInc(MetricPasswordVerifyFailure)
		e.emitAudit(ctx, auditEventPasswordVerify, false, userID, "", err, func() map[string]string {
			return map[string]string{"algorithm": stored.ID}
		})
		return err
	}
	if !ok {
		e.recordVerifyFailure(ctx, userID)
		e.metricInc(MetricPasswordVerifyFailure)
		e.emitAudit(ctx, auditEventPasswordVerify, false, userID, "", ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	if err := e.limiter.Reset(ctx, userID); err != nil {
		e.logger.Printf("goTrust: verify throttle reset for %q failed: %v", userID, err)
	}
	e.metricInc(MetricPasswordVerifySuccess)
	e.emitAudit(ctx, auditEventPasswordVerify, true, userID, "", nil, nil)

	if e.config.Hashing.UpgradeOnVerify {
		e.upgradeHash(ctx, userID, stored, password)
	}
	return nil
}

// deriveDummy spends one derivation at the default cost so an unknown user
// takes as long to reject as a wrong password.
func (e *Engine) deriveDummy(password string) {
	if e.dummy == "" {
		return
	}
	start := time.Now()
	_, _ = e.strategy.Verify(e.dummy, password)
	e.observeHash(start)
}

func (e *Engine) recordVerifyFailure(ctx context.Context, userID string) {
	spent, err := e.limiter.RecordFailure(ctx, userID)
	if err != nil {
		e.logger.Printf("goTrust: verify throttle update for %q failed: %v", userID, err)
		return
	}
	if spent {
		e.logger.Printf("goTrust: password verification for %q throttled after %d failures", userID, e.config.Throttle.MaxFailures)
	}
}

// upgradeHash rewrites stored with the current default. A concurrent password
// change wins; failures never fail the verification that triggered them.
func (e *Engine) upgradeHash(ctx context.Context, userID string, stored hashing.HashString, password string) {
	need, err := e.strategy.NeedsRehash(stored.String())
	if err != nil || !need {
		return
	}

	next, err := e.hashNew(password)
	if err != nil {
		e.logger.Printf("goTrust: hash upgrade for %q failed: %v", userID, err)
		return
	}

	if err := e.store.Replace(ctx, userID, stored, next); err != nil {
		if !errors.Is(err, credential.ErrConflict) {
			e.logger.Printf("goTrust: hash upgrade for %q failed: %v", userID, err)
		}
		return
	}

	e.metricInc(MetricHashUpgraded)
	e.emitAudit(ctx, auditEventHashUpgraded, true, userID, "", nil, func() map[string]string {
		return map[string]string{"from": stored.ID, "to": next.ID}
	})
}

func (e *Engine) hashNew(password string) (hashing.HashString, error) {
	start := time.Now()
	encoded, err := e.strategy.HashNew(password)
	e.observeHash(start)
	if err != nil {
		return hashing.HashString{}, err
	}
	return hashing.ParseHashString(encoded)
}

func (e *Engine) onParamFallback(algorithm, key, raw string) {
	e.metricInc(MetricHashParamFallback)
	if e.config.Hashing.LogParamFallback {
		e.logger.Printf("goTrust: %s parameter %q has unusable value %q; using default", algorithm, key, raw)
	}
	e.emitAudit(context.Background(), auditEventHashParamFallback, true, "", "", nil, func() map[string]string {
		return map[string]string{"algorithm": algorithm, "param": key, "value": raw}
	})
}

func storeError(err error) error {
	if errors.Is(err, credential.ErrUnavailable) {
		return fmt.Errorf("%w: %v", ErrCredentialUnavailable, err)
	}
	return err
}

/*
====================================
AUTHENTICATOR METADATA
====================================
*/

// RefreshCatalog ingests toc through the configured blob source and publishes
// the result. Records whose statements are missing or tampered are published
// with their failure and rejected by CheckAuthenticator.
func (e *Engine) RefreshCatalog(ctx context.Context, toc *metadata.TOC) (*metadata.Snapshot, error) {
	if e == nil || e.catalog == nil {
		return nil, ErrEngineNotReady
	}
	if e.blobs == nil {
		return nil, ErrNoBlobSource
	}

	snap, err := metadata.Ingest(ctx, toc, e.blobs, metadata.WithLogger(e.logger))
	if err != nil {
		return nil, err
	}
	if err := e.PublishCatalog(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// PublishCatalog swaps in snap. Concurrent checks see either the old or the
// new snapshot, never a mix.
func (e *Engine) PublishCatalog(ctx context.Context, snap *metadata.Snapshot) error {
	if e == nil || e.catalog == nil {
		return ErrEngineNotReady
	}
	if err := e.catalog.Publish(snap); err != nil {
		return err
	}

	e.metricInc(MetricCatalogPublished)
	if e.metrics != nil {
		e.metrics.Add(MetricCatalogEntryFailure, uint64(snap.Failures()))
	}
	if snap.Failures() > 0 {
		e.logger.Printf("goTrust: catalog %d published with %d of %d entries failing integrity checks", snap.Serial(), snap.Failures(), snap.Len())
	}

	e.emitAudit(ctx, auditEventCatalogPublished, true, "", strconv.Itoa(snap.Serial()), nil, func() map[string]string {
		return map[string]string{
			"entries":     strconv.Itoa(snap.Len()),
			"failures":    strconv.Itoa(snap.Failures()),
			"next_update": snap.NextUpdate(),
		}
	})
	return nil
}

// LookupAuthenticator returns the published entry for key.
func (e *Engine) LookupAuthenticator(key string) (*metadata.Entry, error) {
	if e == nil || e.catalog == nil {
		return nil, ErrEngineNotReady
	}
	return e.catalog.Lookup(key)
}

// CheckAuthenticator evaluates the published entry for key as of now. A
// rejected authenticator returns a *metadata.TrustError whose message is the
// audit reason; an accepted one may carry an advisory.
func (e *Engine) CheckAuthenticator(ctx context.Context, key string) (metadata.Verdict, error) {
	if e == nil || e.catalog == nil {
		return metadata.Verdict{}, ErrEngineNotReady
	}

	verdict, err := e.catalog.Check(key)
	if err != nil {
		var trustErr *metadata.TrustError
		if errors.As(err, &trustErr) {
			e.metricInc(MetricAuthenticatorRejected)
			e.emitAudit(ctx, auditEventAuthenticatorRejected, false, "", key, err, func() map[string]string {
				md := map[string]string{"reason": trustErr.Reason}
				if trustErr.Status != "" {
					md["status"] = trustErr.Status
				}
				return md
			})
		}
		return metadata.Verdict{}, err
	}

	e.metricInc(MetricAuthenticatorAccepted)
	if verdict.Advisory != "" {
		e.metricInc(MetricAuthenticatorAdvisory)
		e.emitAudit(ctx, auditEventAuthenticatorAdvisory, true, "", key, nil, func() map[string]string {
			return map[string]string{"status": verdict.Status, "advisory": verdict.Advisory}
		})
	}
	return verdict, nil
}
