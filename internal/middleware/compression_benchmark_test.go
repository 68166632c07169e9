package middleware

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

// eventsPayload builds an events listing like GET /api/analytics/events returns.
func eventsPayload(n int) string {
	var sb strings.Builder
	sb.WriteString(`{"items":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, `{"id":"evt-%06d","timestamp":"2026-10-16T14:%02d:00Z","type":"calculate",`+
			`"category":"pricing","session_id":"session_%d","data":{"proposal":"P-%04d","value":%d.50}}`,
			i, i%60, i%25, i%300, i*17)
	}
	sb.WriteString(`],"page":{"page":1,"page_size":1000,"total_pages":1,"total_items":1000}}`)
	return sb.String()
}

func TestCompressionRatio(t *testing.T) {
	payload := eventsPayload(1000)
	uncompressedSize := len(payload)

	tests := []struct {
		encoding string
		maxRatio float64
	}{
		{"gzip", 0.30},
		{"br", 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			handler := Compress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(payload))
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/analytics/events", nil)
			req.Header.Set("Accept-Encoding", tt.encoding)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if got := rr.Header().Get("Content-Encoding"); got != tt.encoding {
				t.Fatalf("expected Content-Encoding %s, got %s", tt.encoding, got)
			}
			ratio := float64(rr.Body.Len()) / float64(uncompressedSize)
			t.Logf("%s: %d -> %d bytes (%.1f%% reduction)", tt.encoding, uncompressedSize, rr.Body.Len(), (1-ratio)*100)
			if ratio > tt.maxRatio {
				t.Errorf("compression ratio %.2f exceeds maximum %.2f", ratio, tt.maxRatio)
			}

			var r io.Reader
			if tt.encoding == "gzip" {
				gr, err := gzip.NewReader(rr.Body)
				if err != nil {
					t.Fatalf("failed to create gzip reader: %v", err)
				}
				defer gr.Close()
				r = gr
			} else {
				r = brotli.NewReader(rr.Body)
			}
			body, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if string(body) != payload {
				t.Error("decompressed body doesn't match original payload")
			}
		})
	}
}

func benchmarkCompress(b *testing.B, encoding string) {
	payload := []byte(eventsPayload(10000))
	handler := Compress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(payload)
	}))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/analytics/events", nil)
		req.Header.Set("Accept-Encoding", encoding)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
	}
}

func BenchmarkGzipCompression(b *testing.B)   { benchmarkCompress(b, "gzip") }
func BenchmarkBrotliCompression(b *testing.B) { benchmarkCompress(b, "br") }
