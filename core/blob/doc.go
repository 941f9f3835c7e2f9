// Package blob persists exporter state that must survive between invocations:
// memoized bulk fetch results and continuation checkpoints.
//
// Two backends implement Store:
//   - FileStore writes files through an afero filesystem (the OS filesystem in
//     production, an in-memory one in tests).
//   - ObjectStore writes objects to the S3-compatible bucket of core/storage, so
//     several hosts can share the same state.
package blob
