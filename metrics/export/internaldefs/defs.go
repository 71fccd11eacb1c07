package internaldefs

import (
	goTrust "github.com/MrEthical07/goTrust"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goTrust.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goTrust.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goTrust.MetricHashComputed, Name: "gotrust_hash_computed_total", Help: "Password hashes derived."},
	{ID: goTrust.MetricHashParamFallback, Name: "gotrust_hash_param_fallback_total", Help: "Hash cost parameters replaced by an algorithm default."},
	{ID: goTrust.MetricHashUpgraded, Name: "gotrust_hash_upgraded_total", Help: "Stored hashes rewritten with the current default after a successful verify."},
	{ID: goTrust.MetricPasswordSet, Name: "gotrust_password_set_total", Help: "Passwords stored."},
	{ID: goTrust.MetricPasswordVerifySuccess, Name: "gotrust_password_verify_success_total", Help: "Successful password verifications."},
	{ID: goTrust.MetricPasswordVerifyFailure, Name: "gotrust_password_verify_failure_total", Help: "Failed password verifications."},
	{ID: goTrust.MetricAuthenticatorAccepted, Name: "gotrust_authenticator_accepted_total", Help: "Authenticators accepted by the metadata status check."},
	{ID: goTrust.MetricAuthenticatorRejected, Name: "gotrust_authenticator_rejected_total", Help: "Authenticators rejected by the metadata status check."},
	{ID: goTrust.MetricAuthenticatorAdvisory, Name: "gotrust_authenticator_advisory_total", Help: "Accepted authenticators that carried an advisory."},
	{ID: goTrust.MetricCatalogPublished, Name: "gotrust_catalog_published_total", Help: "Metadata catalog snapshots published."},
	{ID: goTrust.MetricCatalogEntryFailure, Name: "gotrust_catalog_entry_failure_total", Help: "Catalog entries ingested with a recorded failure."},
	{ID: goTrust.MetricPasswordVerifyThrottled, Name: "gotrust_password_verify_throttled_total", Help: "Password verifications refused after too many failures."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goTrust.MetricHashLatency, Name: "gotrust_hash_latency_seconds", Help: "Key derivation latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the eight engine buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds in a form usable inside metric names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
