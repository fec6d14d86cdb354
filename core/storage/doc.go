// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client so that run reports can be archived to AWS S3 or a
// self-hosted MinIO instance.
//
// # Client Interface
//
// The Client interface exposes only the operations the archive needs, which keeps
// it easy to mock in unit tests (see core/storage/mocks).
//
//   - BucketExists / MakeBucket: bucket bootstrap (see EnsureBucket).
//   - PutObject: uploads a report.
//   - GetObject: reads a report back.
//   - ListObjects / RemoveObjects: retention pruning.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	err = storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region)
package storage
