// Package validator checks ingestion events before they reach a writer
// session and returns per-field error details.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/ingestion"
)

const (
	maxDocumentFields = 1024
	maxTermLength     = 4096
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateEvent checks the shape of an event. Field names and values are
// resolved against the schema later, by the writer.
func ValidateEvent(e *ingestion.Event) error {
	errs := make(map[string]string)

	switch e.Type {
	case ingestion.EventAdd:
		if len(e.Document) == 0 {
			errs["document"] = "document is required and must not be empty"
		} else if len(e.Document) > maxDocumentFields {
			errs["document"] = fmt.Sprintf("document must have at most %d fields", maxDocumentFields)
		}
	case ingestion.EventDelete:
		if strings.TrimSpace(e.Field) == "" {
			errs["field"] = "field is required"
		}
		if len(e.Value) > maxTermLength {
			errs["value"] = fmt.Sprintf("value must be at most %d bytes", maxTermLength)
		}
	case ingestion.EventCommit:
	case "":
		errs["type"] = "type is required"
	default:
		errs["type"] = fmt.Sprintf("unknown event type %q", e.Type)
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateDelete checks a delete request of the HTTP API.
func ValidateDelete(req *ingestion.DeleteRequest) error {
	return ValidateEvent(&ingestion.Event{Type: ingestion.EventDelete, Field: req.Field, Value: req.Value})
}
