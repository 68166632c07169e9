package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	Health(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var out map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if out["status"] != "ok" {
		t.Fatalf("expected status ok, got %s", out["status"])
	}
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		db     Pinger
		status int
		store  string
	}{
		{"memory store", nil, http.StatusOK, "memory"},
		{"postgres up", fakePinger{}, http.StatusOK, "postgres"},
		{"postgres down", fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Ready(tt.db)(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
			if tt.store == "" {
				return
			}
			var out map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if out["store"] != tt.store {
				t.Errorf("expected store %s, got %s", tt.store, out["store"])
			}
		})
	}
}
