// Package router wires the daemon's HTTP routes and applies the middleware
// chain (RequestID, CORS, Metrics, Timeout).
package router

import (
	"net/http"
	"time"

	gwmw "github.com/Adithya-Monish-Kumar-K/textindex/internal/gateway/middleware"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/gateway/ratelimit"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/textindex/internal/ingestion/handler"
	searchhandler "github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/textindex/pkg/middleware"
)

// Deps are the handlers behind the routes. Ingest may be nil for a
// read-only daemon; WriteLimiter may be nil to leave writes unthrottled.
type Deps struct {
	Search         *searchhandler.Handler
	Ingest         *ingesthandler.Handler
	Health         *health.Checker
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
	WriteLimiter   *ratelimit.Limiter
}

// New builds the HTTP handler.
//
// Route table:
//
//	GET    /api/v1/schema                       index schema
//	GET    /api/v1/stats                        latest commit statistics
//	GET    /api/v1/search                       ranked search
//	GET    /api/v1/documents/{segment}/{doc}    stored fields by address
//	POST   /api/v1/documents                    buffer one or more documents
//	POST   /api/v1/delete                       buffer a delete-by-term
//	POST   /api/v1/commit                       commit the session
//	GET    /api/v1/cache/stats                  query cache counters
//	POST   /api/v1/cache/invalidate             drop cached searches
//	GET    /health/live, /health/ready          probes
//
// Middleware chain (outermost first):
//
//	RequestID, CORS, Metrics, Timeout, handler
//
// Write routes additionally pass through the per-client rate limiter.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", d.Health.LiveHandler())
	mux.HandleFunc("GET /health/ready", d.Health.ReadyHandler())

	mux.HandleFunc("GET /api/v1/schema", d.Search.Schema)
	mux.HandleFunc("GET /api/v1/stats", d.Search.Stats)
	mux.HandleFunc("GET /api/v1/search", d.Search.Search)
	mux.HandleFunc("GET /api/v1/documents/{segment}/{doc}", d.Search.Document)

	if d.Ingest != nil {
		limit := gwmw.RateLimit(d.WriteLimiter)
		mux.Handle("POST /api/v1/documents", limit(http.HandlerFunc(d.Ingest.AddDocuments)))
		mux.Handle("POST /api/v1/delete", limit(http.HandlerFunc(d.Ingest.Delete)))
		mux.Handle("POST /api/v1/commit", limit(http.HandlerFunc(d.Ingest.Commit)))
	}

	mux.HandleFunc("GET /api/v1/cache/stats", d.Search.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", d.Search.CacheInvalidate)

	var chain http.Handler = mux
	chain = pkgmw.Timeout(d.RequestTimeout)(chain)
	chain = pkgmw.Metrics(d.Metrics)(chain)
	chain = pkgmw.CORS(pkgmw.DefaultCORSConfig())(chain)
	chain = pkgmw.RequestID(chain)

	return chain
}
