package apierr

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrMemorySweepSkipped, "busy", http.StatusConflict)
	if err.Code != ErrMemorySweepSkipped {
		t.Errorf("expected code %s, got %s", ErrMemorySweepSkipped, err.Code)
	}
	if err.Message != "busy" {
		t.Errorf("expected message 'busy', got '%s'", err.Message)
	}
	if err.Status() != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, err.Status())
	}
}

func TestWithDetailsAndRequestID(t *testing.T) {
	err := New(ErrValidationInvalidValue, "invalid field", http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": "page"}).
		WithRequestID("req-1")

	if field, ok := err.Details["field"]; !ok || field != "page" {
		t.Errorf("expected field 'page', got %v", field)
	}
	if err.RequestID != "req-1" {
		t.Errorf("expected request ID req-1, got %s", err.RequestID)
	}
}

func TestErrorInterface(t *testing.T) {
	err := AnalyticsInvalidEvent("type is required")
	if err.Error() != "ANALYTICS_INVALID_EVENT: type is required" {
		t.Errorf("unexpected error string %s", err.Error())
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, MemoryEntryNotFound("calc", "q1").WithRequestID("req-123"))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != ErrMemoryEntryNotFound {
		t.Fatalf("unexpected response %+v", resp.Error)
	}
	if resp.Error.RequestID != "req-123" {
		t.Errorf("expected request ID req-123, got %s", resp.Error.RequestID)
	}
	if resp.Error.Details["id"] != "q1" {
		t.Errorf("expected id detail, got %v", resp.Error.Details)
	}
}

func TestHelperStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		status int
		code   ErrorCode
	}{
		{"unknown category", MemoryUnknownCategory("proposal"), http.StatusNotFound, ErrMemoryUnknownCategory},
		{"sweep skipped", MemorySweepSkipped(), http.StatusConflict, ErrMemorySweepSkipped},
		{"destroyed", MemoryDestroyed(), http.StatusServiceUnavailable, ErrMemoryDestroyed},
		{"invalid date", AnalyticsInvalidDate("2026-13-01"), http.StatusBadRequest, ErrAnalyticsInvalidDate},
		{"no data", AnalyticsNoData("2026-10-16"), http.StatusNotFound, ErrAnalyticsNoData},
		{"flush failed", AnalyticsFlushFailed(""), http.StatusServiceUnavailable, ErrAnalyticsFlushFailed},
		{"closed", AnalyticsClosed(), http.StatusServiceUnavailable, ErrAnalyticsClosed},
		{"too large", ValidationTooLarge(1 << 20), http.StatusRequestEntityTooLarge, ErrValidationTooLarge},
		{"internal", SystemInternal(""), http.StatusInternalServerError, ErrSystemInternal},
		{"rate limit ip", RateLimitIP(), http.StatusTooManyRequests, ErrRateLimitIP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Status() != tt.status || tt.err.Code != tt.code {
				t.Errorf("got %d/%s, want %d/%s", tt.err.Status(), tt.err.Code, tt.status, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("expected default message")
			}
		})
	}
}
