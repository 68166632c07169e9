package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/apierr"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/logger"
)

// Health returns a simple JSON payload to indicate the API is alive.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Ready reports whether the analytics database answers. With no database
// configured the service runs on the in-memory store and is always ready.
func Ready(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "store": "memory"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			logger.WarnContext(ctx, "readiness check failed", "error", err)
			apierr.WriteErrorWithContext(w, r, apierr.SystemUnavailable("Database unavailable"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "store": "postgres"})
	}
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", "error", err)
	}
}
