package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/textindex"
)

func up(context.Context) ComponentHealth       { return ComponentHealth{Status: StatusUp} }
func degraded(context.Context) ComponentHealth { return ComponentHealth{Status: StatusDegraded} }

func TestRunReportsWorstStatus(t *testing.T) {
	c := NewChecker(0)
	c.Register("a", up)
	assert.Equal(t, StatusUp, c.Run(context.Background()).Status)

	c.Register("b", degraded)
	assert.Equal(t, StatusDegraded, c.Run(context.Background()).Status)

	c.Register("c", PingCheck(func(context.Context) error { return errors.New("refused") }))
	report := c.Run(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, "refused", report.Components["c"].Message)
	assert.Equal(t, []string{"a", "b", "c"}, c.Names())
}

func TestReadyHandler(t *testing.T) {
	b := schema.NewBuilder()
	_, err := b.AddTextField("title", true, true)
	require.NoError(t, err)
	s, err := b.Build()
	require.NoError(t, err)
	idx, err := textindex.Create(s)
	require.NoError(t, err)

	c := NewChecker(0)
	c.Register("index", IndexCheck(idx))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "opstamp 0, 0 docs in 0 segments", report.Components["index"].Message)

	require.NoError(t, idx.Close())
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
