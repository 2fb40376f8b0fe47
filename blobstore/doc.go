// Package blobstore provides mirror targets for the index artifact.
//
// A Store holds whole blobs addressed by name. The index writes its artifact
// to the local file first and then copies the same bytes to every configured
// mirror, so a Store never sees a partially written artifact.
//
// # Built-in Implementations
//
//   - LocalStore: a directory on the local file system (atomic replace)
//   - MemoryStore: an in-process map, useful for tests
//   - s3.Store: Amazon S3 via aws-sdk-go-v2
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
// Implement the Store interface to support other backends:
//
//	type Store interface {
//	    Put(ctx, name, data) error
//	    Get(ctx, name) ([]byte, error)
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
