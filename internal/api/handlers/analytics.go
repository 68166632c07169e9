package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/sync/singleflight"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/analytics"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/apierr"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/cache"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/circuitbreaker"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/listopt"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/logger"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/memory"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/metrics"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/middleware"
)

// EventPager is the list view served by GET /api/analytics/events.
type EventPager = listopt.Pager[analytics.Event]

const (
	eventsPageSize    = 20
	maxEventsPageSize = 200
	maxEventsPerPost  = 500
)

var eventSortFields = map[string]listopt.Less[analytics.Event]{
	"timestamp": func(a, b analytics.Event) bool { return a.Timestamp.Before(b.Timestamp) },
	"type":      func(a, b analytics.Event) bool { return a.Type < b.Type },
	"category":  func(a, b analytics.Event) bool { return a.Category < b.Category },
}

var eventSearchFields = []func(analytics.Event) string{
	func(e analytics.Event) string { return e.Type },
	func(e analytics.Event) string { return e.Category },
	func(e analytics.Event) string { return e.SessionID },
	func(e analytics.Event) string { return e.UserID },
}

// AnalyticsHandler serves event tracking and reporting.
type AnalyticsHandler struct {
	svc   *analytics.Service
	mgr   *memory.Manager
	cache cache.Cache
	loads singleflight.Group
}

// NewAnalyticsHandler creates the handler. Event list views are registered
// with mgr so idle ones are evicted with the rest of the list category.
func NewAnalyticsHandler(svc *analytics.Service, mgr *memory.Manager, c cache.Cache) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, mgr: mgr, cache: c}
}

// TrackEvents queues one event object or an array of them.
// POST /api/analytics/events
func (h *AnalyticsHandler) TrackEvents(w http.ResponseWriter, r *http.Request) {
	events, apiErr := decodeEvents(r)
	if apiErr != nil {
		apierr.WriteErrorWithContext(w, r, apiErr)
		return
	}

	ids := make([]string, 0, len(events))
	for i, e := range events {
		if err := checkEventIdentifiers(e); err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.AnalyticsInvalidEvent(err.Error()).
				WithDetails(map[string]interface{}{"index": i, "accepted": len(ids)}))
			return
		}
		tracked, err := h.svc.Track(r.Context(), e)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, trackError(err).
				WithDetails(map[string]interface{}{"index": i, "accepted": len(ids)}))
			return
		}
		ids = append(ids, tracked.ID)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": len(ids),
		"ids":      ids,
		"queued":   h.svc.QueueLen(),
	})
}

func decodeEvents(r *http.Request) ([]analytics.Event, *apierr.Error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apierr.ValidationTooLarge(tooLarge.Limit)
		}
		return nil, apierr.ValidationInvalidJSON()
	}
	raw = bytes.TrimSpace(raw)

	var events []analytics.Event
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &events); err != nil {
			return nil, apierr.ValidationInvalidJSON()
		}
	} else {
		var e analytics.Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, apierr.ValidationInvalidJSON()
		}
		events = []analytics.Event{e}
	}

	if len(events) == 0 {
		return nil, apierr.ValidationMissingField("events")
	}
	if len(events) > maxEventsPerPost {
		return nil, apierr.ValidationInvalidValue("events", "At most "+strconv.Itoa(maxEventsPerPost)+" events per request")
	}
	return events, nil
}

// checkEventIdentifiers rejects ids and labels that would not be safe as
// metric labels or log fields. Empty values are left to Event.Validate.
func checkEventIdentifiers(e analytics.Event) error {
	fields := []struct{ name, value string }{
		{"id", e.ID}, {"type", e.Type}, {"category", e.Category},
		{"session_id", e.SessionID}, {"user_id", e.UserID},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := middleware.ValidateIdentifier(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

func trackError(err error) *apierr.Error {
	switch {
	case errors.Is(err, analytics.ErrInvalidEvent):
		return apierr.AnalyticsInvalidEvent(err.Error())
	case errors.Is(err, analytics.ErrClosed):
		return apierr.AnalyticsClosed()
	default:
		return apierr.SystemInternal("Failed to track event")
	}
}

// Flush writes queued events now and drops cached metric responses.
// POST /api/analytics/flush
func (h *AnalyticsHandler) Flush(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Flush(r.Context())
	if err != nil {
		logger.WithRequestID(r.Context()).Warn("manual analytics flush failed", "error", err)
		msg := ""
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			msg = "Analytics store unavailable; events remain queued"
		}
		apierr.WriteErrorWithContext(w, r, apierr.AnalyticsFlushFailed(msg).
			WithDetails(map[string]interface{}{"queued": h.svc.QueueLen()}))
		return
	}
	if n > 0 {
		h.cache.Clear()
	}
	writeJSON(w, http.StatusOK, map[string]int{"flushed": n, "queued": h.svc.QueueLen()})
}

// EventsResponse is one page of an event list view.
type EventsResponse struct {
	View  string            `json:"view"`
	Items []analytics.Event `json:"items"`
	Page  listopt.PageInfo  `json:"page"`
}

// ListEvents pages through stored events. The first request builds a view
// from the filter parameters (type, category, session, since, until,
// limit, page_size) and returns its id; later requests pass view=<id> with
// page, search, sort and dir to move through it without hitting the store.
// GET /api/analytics/events
func (h *AnalyticsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	view := q.Get("view")
	var pager *EventPager
	if view != "" {
		p, ok := memory.ListAs[*EventPager](h.mgr, view)
		if !ok {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("event view").
				WithDetails(map[string]interface{}{"view": view}))
			return
		}
		pager = p
	} else {
		filter, pageSize, apiErr := parseEventQuery(q.Get)
		if apiErr != nil {
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}
		events, err := h.svc.Events(r.Context(), filter)
		if err != nil {
			logger.WithRequestID(r.Context()).Error("failed to load events", "error", err)
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to load events"))
			return
		}
		pager = listopt.New(events, listopt.Options[analytics.Event]{
			PageSize:        pageSize,
			EnableSearch:    true,
			SearchFields:    eventSearchFields,
			EnableSort:      true,
			SortFields:      eventSortFields,
			EnablePageCache: true,
		})
		view = uuid.NewString()
		h.mgr.RegisterList(view, pager)
	}

	info := pager.Info()
	if q.Has("search") {
		if term := middleware.SanitizeString(q.Get("search"), middleware.MaxIdentifierLength); term != info.SearchTerm {
			pager.Search(term)
		}
	}
	if key := q.Get("sort"); key != "" {
		if _, ok := eventSortFields[key]; !ok {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("sort", "Unknown sort key: "+key))
			return
		}
		dir := q.Get("dir")
		if dir == "" {
			dir = listopt.Asc
		}
		if key != info.SortKey || !strings.EqualFold(dir, info.SortDir) {
			pager.Sort(key, dir)
		}
	}
	n := 0
	if p := q.Get("page"); p != "" {
		var err error
		if n, err = strconv.Atoi(p); err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("page", "page must be an integer"))
			return
		}
		if n < 1 {
			n = 1
		}
	}

	items, info := pager.Goto(n)
	writeJSON(w, http.StatusOK, EventsResponse{View: view, Items: items, Page: info})
}

// CloseEventView drops a list view before it ages out.
// DELETE /api/analytics/events/views/{view}
func (h *AnalyticsHandler) CloseEventView(w http.ResponseWriter, r *http.Request) {
	view := mux.Vars(r)["view"]
	if _, ok := memory.ListAs[*EventPager](h.mgr, view); !ok {
		apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("event view"))
		return
	}
	h.mgr.UnregisterList(view)
	w.WriteHeader(http.StatusNoContent)
}

// parseEventQuery reads the view-building parameters through get.
func parseEventQuery(get func(string) string) (analytics.EventFilter, int, *apierr.Error) {
	f := analytics.EventFilter{
		Type:      get("type"),
		Category:  get("category"),
		SessionID: get("session"),
	}
	for _, p := range []struct{ name, value string }{{"type", f.Type}, {"category", f.Category}, {"session", f.SessionID}} {
		if p.value == "" {
			continue
		}
		if err := middleware.ValidateIdentifier(p.name, p.value); err != nil {
			return f, 0, apierr.ValidationInvalidValue(p.name, err.Error())
		}
	}

	var err error
	if v := get("since"); v != "" {
		if f.Since, err = time.Parse(time.RFC3339, v); err != nil {
			return f, 0, apierr.ValidationInvalidValue("since", "since must be an RFC 3339 timestamp")
		}
	}
	if v := get("until"); v != "" {
		if f.Until, err = time.Parse(time.RFC3339, v); err != nil {
			return f, 0, apierr.ValidationInvalidValue("until", "until must be an RFC 3339 timestamp")
		}
	}
	if v := get("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil || f.Limit < 0 {
			return f, 0, apierr.ValidationInvalidValue("limit", "limit must be a positive integer")
		}
	}

	pageSize := eventsPageSize
	if v := get("page_size"); v != "" {
		if pageSize, err = strconv.Atoi(v); err != nil || pageSize <= 0 {
			return f, 0, apierr.ValidationInvalidValue("page_size", "page_size must be a positive integer")
		}
		if pageSize > maxEventsPageSize {
			pageSize = maxEventsPageSize
		}
	}
	return f.Normalize(), pageSize, nil
}

// GetMetrics returns the aggregate for one day, served from the response
// cache when possible.
// GET /api/analytics/metrics/{date}
func (h *AnalyticsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	key := cache.Key("analytics", "metrics", date)

	if cached, found := h.cache.Get(key); found {
		metrics.APICacheHits.WithLabelValues("analytics_metrics").Inc()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		_, _ = w.Write(cached)
		return
	}
	metrics.APICacheMisses.WithLabelValues("analytics_metrics").Inc()

	// Concurrent misses for the same day share one store query.
	v, err, _ := h.loads.Do(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 10*time.Second)
		defer cancel()
		m, err := h.svc.Metrics(ctx, date)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		h.cache.Set(key, data, 0)
		return data, nil
	})
	switch {
	case errors.Is(err, analytics.ErrInvalidDate):
		apierr.WriteErrorWithContext(w, r, apierr.AnalyticsInvalidDate(date))
		return
	case errors.Is(err, analytics.ErrNotFound):
		apierr.WriteErrorWithContext(w, r, apierr.AnalyticsNoData(date))
		return
	case errors.Is(err, context.DeadlineExceeded):
		apierr.WriteErrorWithContext(w, r, apierr.SystemTimeout("Metrics query timed out"))
		return
	case err != nil:
		logger.WithRequestID(r.Context()).Error("failed to load metrics", "date", date, "error", err)
		apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase("Failed to load metrics"))
		return
	}
	data := v.([]byte)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	_, _ = w.Write(data)
}
