// Package storage defines the directory abstraction the index persists its
// files into, with in-memory and filesystem implementations.
package storage

import (
	"errors"
	"fmt"
	"os"
)

// ErrNotExist is returned (wrapped) when a named file is absent.
var ErrNotExist = os.ErrNotExist

// ErrIndeterminate is returned (wrapped) by WriteFile when the write failed
// after the new content may already have become visible or durable. Callers
// must not assume the previous content is still in place.
var ErrIndeterminate = errors.New("write outcome unknown")

// Directory is a flat namespace of named immutable blobs. WriteFile must be
// atomic: readers observe either the previous content or the new content,
// never a partial write.
type Directory interface {
	Exists(name string) (bool, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
	// Remove deletes name. Removing a missing file is not an error.
	Remove(name string) error
	// List returns every file name in lexical order.
	List() ([]string, error)
}

// IsIndeterminate reports whether err leaves the outcome of a write unknown.
func IsIndeterminate(err error) bool {
	return errors.Is(err, ErrIndeterminate)
}

// IsNotExist reports whether err signals a missing file.
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

func notExist(name string) error {
	return fmt.Errorf("%s: %w", name, ErrNotExist)
}
