// Package ingest runs the fetch, map and upsert pipeline for one resource kind.
//
// # Flow
//
// Orchestrator.Handle resolves the kind's Fetcher from a Registry, enumerates
// resources (page by page for a PageFetcher), and hands their identifiers to a
// Coordinator. The coordinator runs a fixed pool of workers; each item is
// looked up with FetchOne, mapped with the mapping engine and upserted into
// the catalog. Workers send their results to a single aggregating loop.
//
// After the fan-out an optional Cleaner hook runs, then Decide compares the
// remaining ExecutionContext budget with the threshold and produces the
// ExecutionResult, including the next ResourceConfig when work must resume
// in a later invocation.
//
// # Failures
//
// Handle never returns an error. Enumeration errors, panics and per-item
// failures are logged with the kind, region and run id and set SkipDelete,
// which tells the caller the entity set may be incomplete and must not be
// used for pruning.
package ingest
