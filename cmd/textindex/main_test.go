package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `[
  {"name": "title", "type": "text", "options": {"stored": true, "indexed": true}},
  {"name": "year", "type": "i64", "options": {"stored": true, "indexed": true}}
]`

const testDocs = `{"title": "Rust patterns", "year": 2021}

{"title": "Go in practice", "year": 2019, "colour": "red"}
{"title": "Rust for rustaceans", "year": 2021}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCLIRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "idx")
	var out bytes.Buffer

	require.NoError(t, run([]string{"create", "-dir", dir, "-schema", writeFile(t, "schema.json", testSchema)}, &out))
	assert.Contains(t, out.String(), "opstamp 0, 2 fields")

	out.Reset()
	require.NoError(t, run([]string{"ingest", "-dir", dir, "-file", writeFile(t, "docs.jsonl", testDocs), "-commit-every", "2"}, &out))
	assert.Contains(t, out.String(), "document 2: skipped colour: unknown field")
	assert.Contains(t, out.String(), "ingested 3 documents (1 fields skipped), opstamp 2")

	out.Reset()
	require.NoError(t, run([]string{"search", "-dir", dir, "-q", "rust", "-limit", "5"}, &out))
	var res struct {
		Opstamp   uint64 `json:"opstamp"`
		TotalHits int    `json:"total_hits"`
		Hits      []struct {
			Fields map[string]any `json:"fields"`
		} `json:"hits"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, uint64(2), res.Opstamp)
	assert.Equal(t, 2, res.TotalHits)

	out.Reset()
	require.NoError(t, run([]string{"delete", "-dir", dir, "-field", "year", "-value", "2021"}, &out))
	assert.Contains(t, out.String(), "deleted 2 documents, opstamp 3")

	out.Reset()
	require.NoError(t, run([]string{"inspect", "-dir", dir}, &out))
	var info struct {
		Stats struct {
			Opstamp uint64 `json:"opstamp"`
			NumDocs int    `json:"num_docs"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, uint64(3), info.Stats.Opstamp)
	assert.Equal(t, 1, info.Stats.NumDocs)
}

func TestCLIUsageErrors(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorIs(t, run(nil, &out), errUsage)
	assert.ErrorIs(t, run([]string{"merge"}, &out), errUsage)
	assert.ErrorIs(t, run([]string{"search", "-dir", t.TempDir()}, &out), errUsage)
	assert.ErrorIs(t, run([]string{"create", "-bogus"}, &out), errUsage)
}

func TestReadDocumentsReportsLine(t *testing.T) {
	_, err := readDocuments(writeFile(t, "bad.jsonl", "{\"title\": \"ok\"}\n{broken\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.jsonl:2")
}
