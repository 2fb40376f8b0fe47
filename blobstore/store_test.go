package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/asarangaram/clmediakit/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing.clhx")
	assert.True(t, errors.Is(err, ErrNotFound))

	data := []byte("index artifact bytes")
	require.NoError(t, store.Put(ctx, "a/index.clhx", data))
	require.NoError(t, store.Put(ctx, "b.clhx", []byte("other")))

	// Mutating the caller's slice must not change the stored blob.
	data[0] = 'X'

	got, err := store.Get(ctx, "a/index.clhx")
	require.NoError(t, err)
	assert.Equal(t, "index artifact bytes", string(got))

	require.NoError(t, store.Put(ctx, "a/index.clhx", []byte("replaced")))
	got, err = store.Get(ctx, "a/index.clhx")
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(got))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/index.clhx", "b.clhx"}, names)

	names, err = store.List(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/index.clhx"}, names)

	require.NoError(t, store.Delete(ctx, "b.clhx"))
	require.NoError(t, store.Delete(ctx, "b.clhx"))
	_, err = store.Get(ctx, "b.clhx")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
	assert.Equal(t, "memory", Describe(NewMemoryStore()))
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	testStore(t, store)

	_, err := os.Stat(filepath.Join(dir, "a", "index.clhx"))
	assert.NoError(t, err)
	assert.Equal(t, "file://"+filepath.ToSlash(dir), Describe(store))
}

func TestLocalStore_MissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "nope"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalStore_RejectsEscapingNames(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"", ".", "..", "../x", "/abs"} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, store.Put(ctx, name, []byte("x")))
		})
	}
}

func TestLocalStore_FailedPutKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	faulty := fs.NewFaultyFS(nil)
	store := NewLocalStoreWithFS(dir, faulty)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "index.clhx", []byte("v1")))

	faulty.AddRule("index.clhx", fs.Fault{FailAfterBytes: -1, FailOnSync: true})
	require.Error(t, store.Put(ctx, "index.clhx", []byte("v2")))

	got, err := store.Get(ctx, "index.clhx")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"index.clhx"}, names)
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, store := range map[string]Store{
		"memory": NewMemoryStore(),
		"local":  NewLocalStore(t.TempDir()),
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, store.Put(ctx, "x", []byte("x")), context.Canceled)
			_, err := store.Get(ctx, "x")
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}
