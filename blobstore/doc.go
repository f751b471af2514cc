// Package blobstore provides storage abstraction for analysis artifacts:
// abundance matrix snapshots, screening reports, and run manifests.
//
// BlobStore is the interface for reading and writing immutable artifact
// blobs. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 with range reads and streaming uploads
//   - s3.CommitStore: S3 plus a DynamoDB pointer for atomic run publishes
//   - minio.Store: MinIO and other S3-compatible object stores
//   - CachingStore: block-caching wrapper for any of the above
//
// # Custom Implementations
//
// Implement BlobStore to plug in other backends. Cloud backends should
// make ReadRange efficient (a single ranged request) since report
// loading reads large contiguous spans.
package blobstore
