// Package storage provides an abstraction layer for S3-compatible object storage.
//
// It wraps the MinIO Go client to provide a simplified interface for the operations the
// exporter needs: reading and writing state objects (bulk caches, checkpoints) and
// enumerating buckets for the S3 bucket resource kind. This abstraction supports both
// AWS S3 and self-hosted MinIO instances.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (see core/storage/mocks).
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	exists, err := client.BucketExists(ctx, "resource-exporter")
package storage
