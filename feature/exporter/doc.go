// Package exporter runs resources documents against the catalog.
//
// A document is an ordered list of resource configs. The service hands each
// one to the ingest orchestrator; when a config defers work because the
// invocation budget runs short, it and the configs after it are saved as a
// checkpoint and, if messaging is configured, published for another worker.
// A run that completes without any skipped deletes may prune catalog entities
// that were not seen.
//
// The HTTP handler exposes:
//   - POST /sync: run the body document, or the configured one
//   - POST /resources/:kind/:id: upsert one resource
//   - DELETE /resources/:kind/:id: delete one resource's entities
//   - GET /kinds: list the dedicated kinds
package exporter
