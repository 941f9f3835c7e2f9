// Package catalog writes normalized entities to the developer catalog.
//
// Two sinks implement Client and Pruner:
//   - PortClient talks to the Port REST API with a rate limiter, a cached
//     access token and retried requests.
//   - Store mirrors entities into the catalog_entities table through GORM,
//     for local runs and for databases that feed other tooling.
//
// Entities are keyed by their external id, "<blueprint>;<identifier>", so
// writing the same entity twice is idempotent.
package catalog
