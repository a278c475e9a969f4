// Package ingestion defines the request, response and Kafka event shapes of
// the document ingestion pipeline.
package ingestion

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/textindex"
)

// Event types carried on the ingest topic.
const (
	EventAdd    = "add"
	EventDelete = "delete"
	EventCommit = "commit"
)

// DeleteRequest names the term whose matching documents are deleted.
type DeleteRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Event is one ingestion operation. Document is set for add events and
// Field/Value for delete events; commit events carry nothing.
type Event struct {
	Type     string         `json:"type"`
	Document map[string]any `json:"document,omitempty"`
	Field    string         `json:"field,omitempty"`
	Value    string         `json:"value,omitempty"`
}

// AddResponse is returned after a document has been buffered.
type AddResponse struct {
	Status  string                   `json:"status"`
	Pending int                      `json:"pending"`
	Skipped []textindex.SkippedField `json:"skipped,omitempty"`
}

// CommitResponse is returned after a commit.
type CommitResponse struct {
	Opstamp uint64 `json:"opstamp"`
	NumDocs int    `json:"num_docs"`
}

// CommitEvent is published after every successful commit.
type CommitEvent struct {
	Index       string    `json:"index"`
	Opstamp     uint64    `json:"opstamp"`
	NumDocs     int       `json:"num_docs"`
	NumDeleted  int       `json:"num_deleted"`
	Segments    int       `json:"segments"`
	CommittedAt time.Time `json:"committed_at"`
}

// BatchResponse is returned after a JSON array of documents has been
// buffered. Skipped is keyed by the position of the document in the array.
type BatchResponse struct {
	Status  string                           `json:"status"`
	Added   int                              `json:"added"`
	Pending int                              `json:"pending"`
	Skipped map[int][]textindex.SkippedField `json:"skipped,omitempty"`
}
