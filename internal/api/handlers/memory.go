package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/apierr"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/logger"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/memory"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/middleware"
)

// DefaultWorkingSetCapacity bounds each working-set category.
const DefaultWorkingSetCapacity = 500

// MemoryHandler exposes the memory manager: stats, forced sweeps and the
// per-category working sets the UI parks its tab, calculation and
// component state in.
type MemoryHandler struct {
	mgr    *memory.Manager
	hub    *Hub
	stores map[string]*memory.Scoped[json.RawMessage]
}

// NewMemoryHandler binds one JSON working set per non-list category. hub
// may be nil; when set, sweep results are pushed to connected clients.
func NewMemoryHandler(m *memory.Manager, capacity int, hub *Hub) *MemoryHandler {
	if capacity <= 0 {
		capacity = DefaultWorkingSetCapacity
	}
	h := &MemoryHandler{mgr: m, hub: hub, stores: make(map[string]*memory.Scoped[json.RawMessage])}
	for _, cat := range m.Reaper().Categories() {
		if cat.Name == memory.CategoryList {
			continue
		}
		h.stores[cat.Name] = memory.Bind[json.RawMessage](m, cat.Name, capacity)
	}
	return h
}

// Stats returns the manager snapshot.
// GET /api/memory/stats
func (h *MemoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.destroyed(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, h.mgr.Stats())
}

// Cleanup runs a sweep now.
// POST /api/memory/cleanup
func (h *MemoryHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	if h.destroyed(w, r) {
		return
	}
	h.writeSweep(w, r, h.mgr.ForceCleanup(r.Context()))
}

// Flush clears every cache now.
// POST /api/memory/flush
func (h *MemoryHandler) Flush(w http.ResponseWriter, r *http.Request) {
	if h.destroyed(w, r) {
		return
	}
	logger.WithRequestID(r.Context()).Info("full memory flush requested")
	h.writeSweep(w, r, h.mgr.FlushAll(r.Context()))
}

// destroyed answers 503 once the manager has been shut down.
func (h *MemoryHandler) destroyed(w http.ResponseWriter, r *http.Request) bool {
	if h.mgr.Reaper().State() != memory.StateDestroyed {
		return false
	}
	apierr.WriteErrorWithContext(w, r, apierr.MemoryDestroyed())
	return true
}

func (h *MemoryHandler) writeSweep(w http.ResponseWriter, r *http.Request, res memory.SweepResult) {
	if res.Skipped {
		apierr.WriteErrorWithContext(w, r, apierr.MemorySweepSkipped())
		return
	}
	if h.hub != nil {
		h.hub.Publish("sweep", res)
	}
	writeJSON(w, http.StatusOK, res)
}

// store resolves the {category} route variable. It writes the error
// response and returns nil when the category cannot be served.
func (h *MemoryHandler) store(w http.ResponseWriter, r *http.Request) *memory.Scoped[json.RawMessage] {
	if h.destroyed(w, r) {
		return nil
	}
	category := mux.Vars(r)["category"]
	s, ok := h.stores[category]
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.MemoryUnknownCategory(category))
		return nil
	}
	return s
}

func entryID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	if err := middleware.ValidateIdentifier("id", id); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("id", err.Error()))
		return "", false
	}
	return id, true
}

// ListEntries returns the resident ids of a category, oldest first.
// GET /api/memory/{category}
func (h *MemoryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	s := h.store(w, r)
	if s == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": s.Category().Name, "ids": s.IDs()})
}

// GetEntry returns a stored document and refreshes its access time.
// GET /api/memory/{category}/{id}
func (h *MemoryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	s := h.store(w, r)
	if s == nil {
		return
	}
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	doc, found := s.Get(id)
	if !found {
		apierr.WriteErrorWithContext(w, r, apierr.MemoryEntryNotFound(s.Category().Name, id))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(doc)
}

// PutEntry stores the request body, which must be a JSON document.
// PUT /api/memory/{category}/{id}
func (h *MemoryHandler) PutEntry(w http.ResponseWriter, r *http.Request) {
	s := h.store(w, r)
	if s == nil {
		return
	}
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationTooLarge(tooLarge.Limit))
			return
		}
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidFormat("Failed to read request body"))
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 || !json.Valid(body) {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
		return
	}
	s.Set(id, json.RawMessage(body))
	w.WriteHeader(http.StatusNoContent)
}

// DeleteEntry drops a stored document.
// DELETE /api/memory/{category}/{id}
func (h *MemoryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	s := h.store(w, r)
	if s == nil {
		return
	}
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	if !s.Delete(id) {
		apierr.WriteErrorWithContext(w, r, apierr.MemoryEntryNotFound(s.Category().Name, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
