// Package minio implements blobstore.BlobStore on MinIO and other
// S3-compatible object stores.
//
// Lab deployments often keep abundance matrices and screening reports
// on a local MinIO cluster rather than in AWS; this backend speaks the
// S3 wire protocol through the MinIO SDK without any AWS configuration
// machinery.
package minio
