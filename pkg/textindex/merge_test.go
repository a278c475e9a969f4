package textindex

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/storage"
)

func TestTier(t *testing.T) {
	assert.Equal(t, 0, tier(1, 10))
	assert.Equal(t, 0, tier(9, 10))
	assert.Equal(t, 1, tier(10, 10))
	assert.Equal(t, 2, tier(150, 10))
	assert.Equal(t, 2, tier(4, 2))
}

func TestCommitsKeepSegmentCountBounded(t *testing.T) {
	root := t.TempDir()
	idx, err := OpenPath(root, bookSchema(t))
	require.NoError(t, err)

	for i := 0; i < 150; i++ {
		commitDocs(t, idx, map[string]any{"title": fmt.Sprintf("note %d", i), "year": i})
	}
	st := idx.Stats()
	assert.Equal(t, 150, st.NumDocs)
	assert.LessOrEqual(t, len(st.Segments), 2*DefaultMergeFactor)

	n, err := idx.NewSearcher().Count("note", []string{"title"})
	require.NoError(t, err)
	assert.Equal(t, 150, n)

	results, err := idx.NewSearcher().Search("year:42", 10, []string{"title"})
	require.NoError(t, err)
	assert.Equal(t, []string{"note 42"}, titles(results))

	dir, err := storage.OpenFS(root)
	require.NoError(t, err)
	names, err := dir.List()
	require.NoError(t, err)
	files := 0
	for _, name := range names {
		if isIndexFile(name) {
			files++
		}
	}
	assert.Equal(t, len(st.Segments), files, "merged-away segments are collected")

	reopened, err := OpenPath(root, nil)
	require.NoError(t, err)
	assert.Equal(t, 150, reopened.NewSearcher().NumDocs())
}

func TestMergeKeepsOrderAndDropsDeletes(t *testing.T) {
	idx, err := Create(bookSchema(t), WithMergeFactor(2))
	require.NoError(t, err)

	commitDocs(t, idx, map[string]any{"title": "book alpha"})
	commitDocs(t, idx, map[string]any{"title": "book bravo"})
	require.Len(t, idx.Stats().Segments, 1)

	w, err := idx.NewWriter(0)
	require.NoError(t, err)
	addAll(t, w, map[string]any{"title": "book charlie"})
	require.NoError(t, w.DeleteByTerm("title", "bravo"))
	_, err = w.Commit()
	require.NoError(t, err)

	st := idx.Stats()
	require.Len(t, st.Segments, 1)
	assert.Equal(t, 2, st.NumDocs)
	assert.Equal(t, 0, st.NumDeleted)

	commitDocs(t, idx, map[string]any{"title": "book delta"})
	assert.Len(t, idx.Stats().Segments, 2)

	results, err := idx.NewSearcher().Search("book", 10, []string{"title"})
	require.NoError(t, err)
	assert.Equal(t, []string{"book alpha", "book charlie", "book delta"}, titles(results))
}

func TestMergeDisabled(t *testing.T) {
	idx, err := Create(bookSchema(t), WithMergeFactor(0))
	require.NoError(t, err)
	for i := 0; i < 12; i++ {
		commitDocs(t, idx, map[string]any{"title": "unmerged"})
	}
	assert.Len(t, idx.Stats().Segments, 12)
}
