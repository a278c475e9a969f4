package textindex

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/storage"
)

const (
	MetaFileName    = "meta.json"
	manifestVersion = 1
)

// Manifest is the committed state of an index. Files in the directory that
// it does not reference are invisible.
type Manifest struct {
	Version  int            `json:"version"`
	Opstamp  uint64         `json:"opstamp"`
	Schema   *schema.Schema `json:"schema"`
	Segments []SegmentMeta  `json:"segments"`
}

// SegmentMeta describes one committed segment. DelGen names the tombstone
// file generation; 0 means the segment has no deletions.
type SegmentMeta struct {
	ID         string `json:"id"`
	NumDocs    uint32 `json:"num_docs"`
	DelGen     uint64 `json:"del_gen"`
	NumDeleted int    `json:"num_deleted"`
}

func (m SegmentMeta) live() int {
	return int(m.NumDocs) - m.NumDeleted
}

type manifestJSON struct {
	Version  int             `json:"version"`
	Opstamp  uint64          `json:"opstamp"`
	Schema   json.RawMessage `json:"schema"`
	Segments []SegmentMeta   `json:"segments"`
}

func (m *Manifest) UnmarshalJSON(data []byte) error {
	var raw manifestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s, err := schema.ParseJSON(raw.Schema)
	if err != nil {
		return err
	}
	*m = Manifest{
		Version:  raw.Version,
		Opstamp:  raw.Opstamp,
		Schema:   s,
		Segments: raw.Segments,
	}
	return nil
}

func loadManifest(dir storage.Directory) (*Manifest, error) {
	data, err := dir.ReadFile(MetaFileName)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", apperrors.ErrStorage, MetaFileName, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", apperrors.ErrCorrupt, MetaFileName, err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("%w: unsupported manifest version %d (expected %d)",
			apperrors.ErrCorrupt, m.Version, manifestVersion)
	}
	return &m, nil
}

func saveManifest(dir storage.Directory, m *Manifest) error {
	m.Version = manifestVersion
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := dir.WriteFile(MetaFileName, data); err != nil {
		return fmt.Errorf("%w: writing %s: %w", apperrors.ErrStorage, MetaFileName, err)
	}
	return nil
}

// referencedFiles lists the segment and tombstone files m depends on.
func (m *Manifest) referencedFiles() map[string]struct{} {
	files := map[string]struct{}{MetaFileName: {}}
	for _, s := range m.Segments {
		files[segment.FileName(s.ID)] = struct{}{}
		if s.DelGen > 0 {
			files[segment.TombstoneFileName(s.ID, s.DelGen)] = struct{}{}
		}
	}
	return files
}

// isIndexFile reports whether name is a segment or tombstone file that
// garbage collection may remove.
func isIndexFile(name string) bool {
	return strings.HasPrefix(name, "seg_") &&
		(strings.HasSuffix(name, ".spdx") || strings.HasSuffix(name, ".del"))
}

func newSegmentID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generating segment id: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
