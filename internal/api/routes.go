// Package api wires the HTTP surface: routes, handlers and the middleware
// chain in front of them.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/analytics"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/api/handlers"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/cache"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/memory"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/middleware"
)

// Deps are the services the routes serve.
type Deps struct {
	Memory    *memory.Manager
	Analytics *analytics.Service
	Cache     cache.Cache
	// Hub streams stats over WebSocket; nil disables /api/memory/ws.
	Hub *handlers.Hub
	// DB backs the readiness probe; nil means the in-memory store.
	DB handlers.Pinger
	// RateLimiter is optional.
	RateLimiter *middleware.RateLimiter
	CORS        *middleware.CORSConfig
	// WorkingSetCapacity bounds each memory category served under
	// /api/memory/{category}.
	WorkingSetCapacity int
}

// NewRouter registers every route. Route-level instrumentation runs inside
// the router so metrics are labelled with path templates.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Instrument)

	r.HandleFunc("/health", handlers.Health).Methods("GET")
	r.HandleFunc("/ready", handlers.Ready(d.DB)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Memory
	mh := handlers.NewMemoryHandler(d.Memory, d.WorkingSetCapacity, d.Hub)
	api.HandleFunc("/memory/stats", mh.Stats).Methods("GET")
	api.HandleFunc("/memory/cleanup", mh.Cleanup).Methods("POST")
	api.HandleFunc("/memory/flush", mh.Flush).Methods("POST")
	if d.Hub != nil {
		api.HandleFunc("/memory/ws", d.Hub.HandleWebSocket).Methods("GET")
	}
	api.HandleFunc("/memory/{category}", mh.ListEntries).Methods("GET")
	api.HandleFunc("/memory/{category}/{id}", mh.GetEntry).Methods("GET")
	api.HandleFunc("/memory/{category}/{id}", mh.PutEntry).Methods("PUT")
	api.HandleFunc("/memory/{category}/{id}", mh.DeleteEntry).Methods("DELETE")

	// Analytics
	ah := handlers.NewAnalyticsHandler(d.Analytics, d.Memory, d.Cache)
	api.HandleFunc("/analytics/events", ah.TrackEvents).Methods("POST")
	api.HandleFunc("/analytics/events", ah.ListEvents).Methods("GET")
	api.HandleFunc("/analytics/events/views/{view}", ah.CloseEventView).Methods("DELETE")
	api.HandleFunc("/analytics/flush", ah.Flush).Methods("POST")
	api.HandleFunc("/analytics/metrics/{date}", ah.GetMetrics).Methods("GET")

	return r
}

// NewHandler returns the router behind the full middleware chain, outermost
// first: request id, panic recovery, security headers, CORS, rate limit,
// body size limit, compression.
func NewHandler(d Deps) http.Handler {
	var h http.Handler = NewRouter(d)
	h = middleware.Compress(h)
	h = middleware.ValidateRequestBody(h)
	if d.RateLimiter != nil {
		h = d.RateLimiter.Limit(h)
	}
	h = middleware.CORS(d.CORS)(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.RecoverWithSentry(h)
	h = middleware.RequestID(h)
	return h
}
