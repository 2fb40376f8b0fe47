// Package fs provides the filesystem boundary used by the index store.
//
// The package defines two interfaces:
//
//   - [File]: an open file with read/write/sync capabilities
//   - [FileSystem]: the operations needed for atomic file replacement
//
// [LocalFS] is the production implementation; [FaultyFS] wraps any
// FileSystem and injects write, sync, close, open or rename failures for tests.
//
// The package also provides [Lock], an advisory cross-process lock held on a
// sidecar file. It is backed by flock(2) on Unix and is a no-op elsewhere.
//
// Operations take no context.Context: local filesystem calls are not
// interruptible at the syscall level. Remote copies go through blobstore.
package fs
