// Package clmediakit provides a persistent similarity index for perceptual
// media fingerprints.
//
// Each media item is represented by a fixed-length fingerprint (by default the
// 64 bits of a perceptual or difference hash, one vector component per bit) and
// a caller-assigned integer id. The index answers "which previously indexed
// items are closest to this one" with an HNSW proximity graph.
//
// # Quick Start
//
//	idx, err := clmediakit.Open("./data/phash.clhx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer idx.Close()
//
//	ctx := context.Background()
//	_ = idx.Add(ctx, 42, "0b1011...")         // '0'/'1' digits, optional 0b prefix
//	matches, _ := idx.Query(ctx, "0b1011...") // 5 nearest items
//	for _, m := range matches {
//	    fmt.Println(m.ID, m.Distance)
//	}
//
// # Durability Model
//
// In the default PersistSync mode every Add, Replace and Remove rewrites the
// index file atomically (temporary file, fsync, rename) before returning. If
// the write fails the mutation is rolled back and *ErrPersistence is returned,
// so memory and disk never disagree. PersistDeferred trades this for
// throughput: writes happen at most once per flush interval and on Flush and
// Close.
//
// # Concurrency
//
// Mutations are serialized per Index. Searches run concurrently with each other
// and with mutations, including during disk writes, and observe the graph
// either before or after a mutation, never in between. An advisory lock file
// ("<path>.lock") keeps a second process from opening the same index for writing.
//
// # Mirrors
//
// WithMirror copies the index file to blob stores (local directory, S3, MinIO)
// after each write; WithRestoreFromMirror recovers a missing local file from them.
package clmediakit
