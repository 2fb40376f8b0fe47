package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	f, err := lfs.CreateTemp(dir, "idx-*.tmp")
	require.NoError(t, err)

	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
	require.NoError(t, f.Close())

	target := filepath.Join(dir, "index.bin")
	require.NoError(t, lfs.Rename(f.Name(), target))
	require.NoError(t, lfs.SyncDir(dir))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, lfs.Remove(target))
	_, err = lfs.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS(t *testing.T) {
	tmp := t.TempDir()
	boom := errors.New("boom")

	tests := []struct {
		name  string
		fault Fault
		run   func(t *testing.T, ffs *FaultyFS) error
	}{
		{
			name:  "WriteLimit",
			fault: Fault{FailAfterBytes: 5, Err: boom},
			run: func(t *testing.T, ffs *FaultyFS) error {
				f, err := ffs.OpenFile(filepath.Join(tmp, "write.tmp"), os.O_CREATE|os.O_RDWR, 0o644)
				require.NoError(t, err)
				defer f.Close()
				n, err := f.Write([]byte("hello"))
				require.NoError(t, err)
				assert.Equal(t, 5, n)
				n, err = f.Write([]byte("!"))
				assert.Equal(t, 0, n)
				return err
			},
		},
		{
			name:  "Sync",
			fault: Fault{FailAfterBytes: -1, FailOnSync: true, Err: boom},
			run: func(t *testing.T, ffs *FaultyFS) error {
				f, err := ffs.CreateTemp(tmp, "sync-*.tmp")
				require.NoError(t, err)
				defer f.Close()
				return f.Sync()
			},
		},
		{
			name:  "Close",
			fault: Fault{FailAfterBytes: -1, FailOnClose: true, Err: boom},
			run: func(t *testing.T, ffs *FaultyFS) error {
				f, err := ffs.CreateTemp(tmp, "close-*.tmp")
				require.NoError(t, err)
				return f.Close()
			},
		},
		{
			name:  "Open",
			fault: Fault{FailAfterBytes: -1, FailOnOpen: true, Err: boom},
			run: func(t *testing.T, ffs *FaultyFS) error {
				_, err := ffs.CreateTemp(tmp, "open-*.tmp")
				return err
			},
		},
		{
			name:  "Rename",
			fault: Fault{FailAfterBytes: -1, FailOnRename: true, Err: boom},
			run: func(t *testing.T, ffs *FaultyFS) error {
				f, err := ffs.CreateTemp(tmp, "rename-*.tmp")
				require.NoError(t, err)
				require.NoError(t, f.Close())
				return ffs.Rename(f.Name(), filepath.Join(tmp, "renamed"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ffs := NewFaultyFS(nil)
			ffs.AddRule(".tmp", tt.fault)
			assert.ErrorIs(t, tt.run(t, ffs), boom)
		})
	}
}

func TestFaultyFS_DefaultError(t *testing.T) {
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("x", Fault{FailAfterBytes: -1, FailOnOpen: true})
	_, err := ffs.OpenFile(filepath.Join(t.TempDir(), "x"), os.O_CREATE|os.O_RDWR, 0o644)
	assert.ErrorIs(t, err, ErrInjected)

	ffs.Reset()
	f, err := ffs.OpenFile(filepath.Join(t.TempDir(), "x"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.NoError(t, f.Close())
}

func TestLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin.lock")

	l, err := TryLock(Default, path)
	require.NoError(t, err)
	assert.Equal(t, path, l.Path())
	require.NoError(t, l.Unlock())
	require.NoError(t, l.Unlock())

	l2, err := TryLock(Default, path)
	require.NoError(t, err)
	require.NoError(t, l2.Unlock())
}

func TestLock_OpenFailure(t *testing.T) {
	ffs := NewFaultyFS(nil)
	ffs.AddRule(".lock", Fault{FailAfterBytes: -1, FailOnOpen: true})

	_, err := TryLock(ffs, filepath.Join(t.TempDir(), "index.bin.lock"))
	assert.ErrorIs(t, err, ErrInjected)
}
