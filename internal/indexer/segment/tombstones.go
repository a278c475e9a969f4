package segment

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/storage"
)

// TombstoneFileName is the directory entry of the deletion set of segment
// id as of generation gen.
func TombstoneFileName(id string, gen uint64) string {
	return fmt.Sprintf("seg_%s.%d.del", id, gen)
}

// Tombstones is the set of deleted document ordinals of one segment. A nil
// *Tombstones is an empty set.
type Tombstones struct {
	bm *roaring.Bitmap
}

func NewTombstones() *Tombstones {
	return &Tombstones{bm: roaring.New()}
}

func (t *Tombstones) Contains(doc uint32) bool {
	return t != nil && t.bm.Contains(doc)
}

// Add marks docs deleted and returns how many were newly deleted.
func (t *Tombstones) Add(docs ...uint32) int {
	added := 0
	for _, d := range docs {
		if t.bm.CheckedAdd(d) {
			added++
		}
	}
	return added
}

func (t *Tombstones) Cardinality() int {
	if t == nil {
		return 0
	}
	return int(t.bm.GetCardinality())
}

// Clone returns an independent copy; cloning nil yields an empty set.
func (t *Tombstones) Clone() *Tombstones {
	if t == nil {
		return NewTombstones()
	}
	return &Tombstones{bm: t.bm.Clone()}
}

// ToBytes serialises the set in the portable roaring format.
func (t *Tombstones) ToBytes() ([]byte, error) {
	t.bm.RunOptimize()
	data, err := t.bm.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialising tombstones: %w", err)
	}
	return data, nil
}

func TombstonesFromBytes(data []byte) (*Tombstones, error) {
	bm := roaring.New()
	if _, err := bm.FromBuffer(data); err != nil {
		return nil, fmt.Errorf("decoding tombstones: %w", err)
	}
	// FromBuffer aliases data; clone to own the memory.
	return &Tombstones{bm: bm.Clone()}, nil
}

// WriteTombstones stores t under TombstoneFileName(id, gen).
func WriteTombstones(dir storage.Directory, id string, gen uint64, t *Tombstones) error {
	data, err := t.ToBytes()
	if err != nil {
		return err
	}
	if err := dir.WriteFile(TombstoneFileName(id, gen), data); err != nil {
		return fmt.Errorf("writing tombstones of %s: %w", id, err)
	}
	return nil
}

// ReadTombstones loads the deletion set written by WriteTombstones.
func ReadTombstones(dir storage.Directory, id string, gen uint64) (*Tombstones, error) {
	data, err := dir.ReadFile(TombstoneFileName(id, gen))
	if err != nil {
		return nil, fmt.Errorf("reading tombstones of %s: %w", id, err)
	}
	return TombstonesFromBytes(data)
}
