// Package prometheus renders goTrust engine metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts an [goTrust.Engine] and exposes an
// [http.Handler]. Counter names are prefixed gotrust_*_total; the single
// histogram is gotrust_hash_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
