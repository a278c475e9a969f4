package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/fs"
)

const tmpSuffix = ".tmp"

// FSDirectory stores each file under a root path on disk. Writes go to a
// temporary sibling that is synced and renamed into place.
type FSDirectory struct {
	root string
	fs   fs.FileSystem
}

// OpenFS opens (creating if needed) the directory at root.
func OpenFS(root string) (*FSDirectory, error) {
	return OpenFSWith(root, fs.Default)
}

// OpenFSWith is OpenFS over an explicit FileSystem.
func OpenFSWith(root string, fsys fs.FileSystem) (*FSDirectory, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	if err := fsys.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory %s: %w", root, err)
	}
	return &FSDirectory{root: root, fs: fsys}, nil
}

func (d *FSDirectory) Root() string { return d.root }

func (d *FSDirectory) path(name string) string {
	return filepath.Join(d.root, name)
}

func (d *FSDirectory) Exists(name string) (bool, error) {
	_, err := d.fs.Stat(d.path(name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", name, err)
}

func (d *FSDirectory) ReadFile(name string) ([]byte, error) {
	data, err := d.fs.ReadFile(d.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notExist(name)
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

func (d *FSDirectory) WriteFile(name string, data []byte) error {
	final := d.path(name)
	tmp := final + tmpSuffix

	f, err := d.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = d.fs.Remove(tmp)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = d.fs.Remove(tmp)
		return fmt.Errorf("syncing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = d.fs.Remove(tmp)
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := d.fs.Rename(tmp, final); err != nil {
		_ = d.fs.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", name, err)
	}
	if err := d.fs.SyncDir(d.root); err != nil {
		return fmt.Errorf("%w: syncing directory after %s: %w", ErrIndeterminate, name, err)
	}
	return nil
}

func (d *FSDirectory) Remove(name string) error {
	err := d.fs.Remove(d.path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	return nil
}

// List skips temporary files left behind by interrupted writes.
func (d *FSDirectory) List() ([]string, error) {
	entries, err := d.fs.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", d.root, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), tmpSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
