package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRecoverWithSentry(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode int
		wantBody string
	}{
		{
			name: "no panic passes through",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status":"ok"}`))
			},
			wantCode: http.StatusOK,
			wantBody: `"ok"`,
		},
		{
			name:     "string panic",
			handler:  func(w http.ResponseWriter, r *http.Request) { panic("sweep state corrupted") },
			wantCode: http.StatusInternalServerError,
			wantBody: `"SYSTEM_INTERNAL"`,
		},
		{
			name:     "error panic",
			handler:  func(w http.ResponseWriter, r *http.Request) { panic(errors.New("nil pager")) },
			wantCode: http.StatusInternalServerError,
			wantBody: `"SYSTEM_INTERNAL"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SENTRY_DSN", "")
			h := RequestID(RecoverWithSentry(tt.handler))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/memory/cleanup", nil))

			if rr.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("expected %s in body, got %s", tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestRecoverWithSentry_ErrorCarriesRequestID(t *testing.T) {
	h := RequestID(RecoverWithSentry(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))
	req := httptest.NewRequest(http.MethodGet, "/api/memory/stats", nil)
	req.Header.Set(RequestIDHeader, "trace-me-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if !strings.Contains(rr.Body.String(), "trace-me-42") {
		t.Errorf("expected request id in error body, got %s", rr.Body.String())
	}
}
