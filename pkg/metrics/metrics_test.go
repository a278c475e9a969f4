package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCommit(nil, time.Millisecond)
		m.AddDocument(2)
		m.Delete()
		m.Flush(errors.New("boom"))
		m.ObserveSearch(3, nil, time.Millisecond)
		m.CacheHit()
		m.CacheMiss()
		m.IngestEvent("add", nil)
		m.SetIndexStats(1, 2, 3)
	})
}

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCollectorsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCommit(nil, time.Millisecond)
	m.ObserveCommit(errors.New("disk full"), time.Millisecond)
	m.AddDocument(2)
	m.ObserveSearch(0, nil, time.Millisecond)
	m.ObserveSearch(4, nil, time.Millisecond)
	m.SetIndexStats(2, 10, 1)

	body := scrape(t, reg)
	for _, line := range []string{
		`textindex_commits_total{status="success"} 1`,
		`textindex_commits_total{status="error"} 1`,
		`textindex_docs_added_total 1`,
		`textindex_docs_skipped_fields_total 2`,
		`textindex_searches_total{result_type="zero_result"} 1`,
		`textindex_searches_total{result_type="hit"} 1`,
		`textindex_live_docs 10`,
	} {
		assert.Contains(t, body, line)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Delete()
	assert.True(t, strings.Contains(scrape(t, reg), "textindex_deletes_total 1"))
}
