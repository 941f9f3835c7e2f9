// Package metrics exposes Prometheus counters and histograms for ingestion runs.
//
// Collectors live on a private registry served by Handler. Every method is safe
// to call on a nil or disabled *Metrics, so components take one unconditionally.
package metrics
