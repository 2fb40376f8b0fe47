package clmediakit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/asarangaram/clmediakit/blobstore"
	"github.com/asarangaram/clmediakit/internal/hnsw"
	"github.com/asarangaram/clmediakit/persistence"
)

// maxMirrorUploads bounds concurrent mirror uploads.
const maxMirrorUploads = 4

// mirror uploads data to every mirror in parallel. Every mirror is attempted;
// the failures are joined.
func (idx *Index) mirror(ctx context.Context, data []byte) error {
	mirrors := idx.opts.mirrors
	if len(mirrors) == 0 {
		return nil
	}

	errs := make([]error, len(mirrors))
	var g errgroup.Group
	g.SetLimit(maxMirrorUploads)
	for i, m := range mirrors {
		g.Go(func() error {
			target := blobstore.Describe(m)
			start := time.Now()
			err := m.Put(ctx, idx.opts.mirrorName, data)
			if err != nil {
				err = fmt.Errorf("mirror %s: %w", target, err)
			}
			idx.metrics.RecordMirror(target, time.Since(start), err)
			idx.logger.LogMirror(ctx, "upload", target, err)
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// restoreFromMirrors writes the first valid mirror copy to the local path.
// It reports false when no mirror holds a copy. If some mirror could not be
// read and none succeeded, it fails rather than starting an empty index that
// would later overwrite the mirrors.
func (idx *Index) restoreFromMirrors(ctx context.Context) (bool, error) {
	var errs []error
	for _, m := range idx.opts.mirrors {
		target := blobstore.Describe(m)
		data, err := m.Get(ctx, idx.opts.mirrorName)
		if errors.Is(err, blobstore.ErrNotFound) {
			continue
		}
		if err == nil {
			err = verifyArtifact(data)
		}
		idx.logger.LogMirror(ctx, "download", target, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("mirror %s: %w", target, err))
			continue
		}
		if err := idx.store.WriteRaw(data); err != nil {
			return false, &ErrPersistence{Op: "restore", Path: idx.path, cause: err}
		}
		idx.logger.Info("index restored from mirror", "target", target)
		return true, nil
	}
	if len(errs) > 0 {
		return false, &ErrPersistence{Op: "restore", Path: idx.path, cause: errors.Join(errs...)}
	}
	return false, nil
}

// verifyArtifact fully decodes an index file using the parameters in its header.
func verifyArtifact(data []byte) error {
	h, body, err := persistence.Decode(data)
	if err != nil {
		return err
	}
	_, err = hnsw.Decode(bytes.NewReader(body), h.VectorEncoding, headerOptions(h, nil))
	return err
}

// Restore downloads the blob name from mirror, verifies it and atomically
// writes it to path. Any writer holding path open must be closed first.
func Restore(ctx context.Context, mirror blobstore.Store, name, path string) error {
	data, err := mirror.Get(ctx, name)
	if err != nil {
		return &ErrPersistence{Op: "restore", Path: path, cause: fmt.Errorf("get %s from %s: %w", name, blobstore.Describe(mirror), err)}
	}
	if err := verifyArtifact(data); err != nil {
		return translateLoadError(name, err)
	}
	if err := persistence.NewStore(path).WriteRaw(data); err != nil {
		return &ErrPersistence{Op: "restore", Path: path, cause: err}
	}
	return nil
}
