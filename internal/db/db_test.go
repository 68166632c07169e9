package db

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/lib/pq"
)

func TestValuesPlaceholders(t *testing.T) {
	if got := ValuesPlaceholders(2, 3); got != "($1,$2,$3),($4,$5,$6)" {
		t.Errorf("unexpected placeholders %q", got)
	}
	if got := ValuesPlaceholders(0, 3); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestBatches(t *testing.T) {
	want := [][2]int{{0, 50}, {50, 100}, {100, 120}}
	if got := Batches(120, 50); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got := Batches(0, 50); len(got) != 0 {
		t.Errorf("expected no batches, got %v", got)
	}
}

func TestWithStatementTimeout(t *testing.T) {
	tests := []struct{ in, want string }{
		{"postgres://u@h/db", "postgres://u@h/db?statement_timeout=2500"},
		{"postgres://u@h/db?sslmode=disable", "postgres://u@h/db?sslmode=disable&statement_timeout=2500"},
		{"host=h dbname=db", "host=h dbname=db statement_timeout=2500"},
	}
	for _, tt := range tests {
		if got := withStatementTimeout(tt.in, 2500*time.Millisecond); got != tt.want {
			t.Errorf("%q: got %q want %q", tt.in, got, tt.want)
		}
	}
}

func TestWithParam_SessionTimeZone(t *testing.T) {
	tests := []struct{ in, want string }{
		{"postgres://u@h/db", "postgres://u@h/db?timezone=UTC"},
		{"postgresql://u@h/db?sslmode=disable", "postgresql://u@h/db?sslmode=disable&timezone=UTC"},
		{"host=h dbname=db", "host=h dbname=db timezone=UTC"},
	}
	for _, tt := range tests {
		if got := withParam(tt.in, "timezone", "UTC"); got != tt.want {
			t.Errorf("%q: got %q want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})
	if !IsUniqueViolation(wrapped) {
		t.Error("expected unique violation")
	}
	if IsUniqueViolation(errors.New("other")) {
		t.Error("plain error is not a unique violation")
	}
}
