// Package s3 implements blobstore.BlobStore on Amazon S3.
//
// Store reads artifacts with ranged GETs and writes them with streaming
// multipart uploads. CommitStore layers a DynamoDB conditional write on
// top so concurrent publishers of a run catalog can advance the LATEST
// pointer atomically, which plain S3 cannot do.
package s3
