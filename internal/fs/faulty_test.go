package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaultyFSFailAfterBytes(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("seg_", Fault{FailAfterBytes: 4})

	f, err := ffs.OpenFile(filepath.Join(dir, "seg_01.spdx"), os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("abcd"))
	require.NoError(t, err)
	_, err = f.Write([]byte("e"))
	assert.ErrorIs(t, err, ErrInjected)
}

func TestFaultyFSRenameAndSync(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("meta.json", Fault{FailAfterBytes: -1, FailOnRename: true})
	ffs.AddRule("sync", Fault{FailAfterBytes: -1, FailOnSync: true})

	src := filepath.Join(dir, "meta.json.tmp")
	require.NoError(t, os.WriteFile(src, []byte("{}"), 0o644))
	assert.ErrorIs(t, ffs.Rename(src, filepath.Join(dir, "meta.json")), ErrInjected)

	f, err := ffs.OpenFile(filepath.Join(dir, "sync.bin"), os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	assert.ErrorIs(t, f.Sync(), ErrInjected)

	ffs.ClearRules()
	require.NoError(t, ffs.Rename(src, filepath.Join(dir, "meta.json")))
	_, err = ffs.Stat(filepath.Join(dir, "meta.json"))
	assert.NoError(t, err)
}

func TestFaultyFSDirSyncAfterRename(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("meta.json", Fault{FailAfterBytes: -1, FailOnDirSync: true})

	require.NoError(t, ffs.SyncDir(dir))

	src := filepath.Join(dir, "meta.json.tmp")
	require.NoError(t, os.WriteFile(src, []byte("{}"), 0o644))
	require.NoError(t, ffs.Rename(src, filepath.Join(dir, "meta.json")))
	assert.ErrorIs(t, ffs.SyncDir(dir), ErrInjected)

	_, err := ffs.Stat(filepath.Join(dir, "meta.json"))
	assert.NoError(t, err, "the rename must stay applied")

	other := filepath.Join(dir, "seg_01.spdx.tmp")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	require.NoError(t, ffs.Rename(other, filepath.Join(dir, "seg_01.spdx")))
	assert.NoError(t, ffs.SyncDir(dir))
}
