// Package handler serves the write side of the HTTP API: buffering
// documents, deleting by term and committing the ingestion session.
package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/textindex"
)

const maxBodyBytes = 16 << 20

// Ingester is the session owner behind the handler; *indexer.Engine
// implements it.
type Ingester interface {
	Add(ctx context.Context, fields map[string]any) (textindex.AddReport, int, error)
	Delete(ctx context.Context, field, value string) (int, error)
	Commit(ctx context.Context) (uint64, error)
	Index() *textindex.Index
}

type Handler struct {
	ingester Ingester
	logger   *slog.Logger
}

func New(ing Ingester) *Handler {
	return &Handler{
		ingester: ing,
		logger:   slog.Default().With("component", "ingestion-handler"),
	}
}

// AddDocuments accepts one JSON object or a JSON array of objects.
func (h *Handler) AddDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	docs, batch, err := decodeDocuments(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for i, doc := range docs {
		if err := validator.ValidateEvent(&ingestion.Event{Type: ingestion.EventAdd, Document: doc}); err != nil {
			h.writeValidation(w, err, i)
			return
		}
	}

	resp := ingestion.BatchResponse{Status: "buffered"}
	for i, doc := range docs {
		report, pending, err := h.ingester.Add(ctx, doc)
		if err != nil {
			h.fail(w, log, "adding document failed", err, "added", resp.Added)
			return
		}
		resp.Added++
		resp.Pending = pending
		if len(report.Skipped) > 0 {
			if resp.Skipped == nil {
				resp.Skipped = make(map[int][]textindex.SkippedField)
			}
			resp.Skipped[i] = report.Skipped
		}
	}
	log.Info("documents buffered", "count", resp.Added, "pending", resp.Pending)

	if batch {
		h.writeJSON(w, http.StatusAccepted, resp)
		return
	}
	h.writeJSON(w, http.StatusAccepted, ingestion.AddResponse{
		Status:  resp.Status,
		Pending: resp.Pending,
		Skipped: resp.Skipped[0],
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req ingestion.DeleteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateDelete(&req); err != nil {
		h.writeValidation(w, err, -1)
		return
	}
	pending, err := h.ingester.Delete(ctx, req.Field, req.Value)
	if err != nil {
		h.fail(w, log, "delete failed", err, "field", req.Field)
		return
	}
	log.Info("delete buffered", "field", req.Field, "pending", pending)
	h.writeJSON(w, http.StatusAccepted, map[string]any{"status": "buffered", "pending": pending})
}

func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	opstamp, err := h.ingester.Commit(ctx)
	if err != nil {
		h.fail(w, log, "commit failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, ingestion.CommitResponse{
		Opstamp: opstamp,
		NumDocs: h.ingester.Index().Stats().NumDocs,
	})
}

// decodeDocuments reads numbers as json.Number so i64 values keep their
// precision. batch reports whether the body was an array.
func decodeDocuments(body io.Reader) (docs []map[string]any, batch bool, err error) {
	br := bufio.NewReader(body)
	first, err := peekNonSpace(br)
	if err != nil {
		return nil, false, errors.New("invalid JSON body")
	}
	dec := json.NewDecoder(br)
	dec.UseNumber()
	switch first {
	case '[':
		if err := dec.Decode(&docs); err != nil {
			return nil, true, errors.New("invalid JSON body")
		}
		if len(docs) == 0 {
			return nil, true, errors.New("empty document array")
		}
		return docs, true, nil
	case '{':
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			return nil, false, errors.New("invalid JSON body")
		}
		return []map[string]any{doc}, false, nil
	}
	return nil, false, fmt.Errorf("expected a JSON object or array, got %q", first)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

func (h *Handler) fail(w http.ResponseWriter, log *slog.Logger, msg string, err error, args ...any) {
	status := apperrors.HTTPStatusCode(err)
	log.Error(msg, append(args, "error", err, "status_code", status)...)
	if status >= http.StatusInternalServerError {
		h.writeError(w, status, msg)
		return
	}
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeValidation(w http.ResponseWriter, err error, index int) {
	var validationErr *validator.ValidationError
	if !errors.As(err, &validationErr) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body := map[string]any{
		"error":  "validation failed",
		"fields": validationErr.Fields,
	}
	if index >= 0 {
		body["document"] = index
	}
	h.writeJSON(w, http.StatusBadRequest, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
