package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"MEMORY_SWEEP_INTERVAL", "MEMORY_HEAP_POLL_INTERVAL", "MEMORY_HEAP_THRESHOLD_MB",
		"MEMORY_TAB_MAX_AGE", "MEMORY_COMPONENT_MAX_AGE", "ANALYTICS_BATCH_SIZE",
		"CORS_ALLOWED_ORIGINS", "SENTRY_ENVIRONMENT", "ENV", "MEMORY_WORKING_SET_CAPACITY",
	} {
		os.Unsetenv(k)
	}
	ResetForTest()
	t.Cleanup(ResetForTest)

	cfg := Load()
	if cfg.SweepInterval != 2*time.Minute || cfg.HeapPollInterval != 30*time.Second {
		t.Fatalf("unexpected intervals: sweep=%v heap=%v", cfg.SweepInterval, cfg.HeapPollInterval)
	}
	if cfg.TabMaxAge != 5*time.Minute || cfg.ComponentMaxAge != 10*time.Minute {
		t.Fatalf("unexpected thresholds: tab=%v component=%v", cfg.TabMaxAge, cfg.ComponentMaxAge)
	}
	if cfg.HeapThresholdBytes() != 100<<20 {
		t.Fatalf("expected 100 MiB heap threshold, got %d", cfg.HeapThresholdBytes())
	}
	if cfg.WorkingSetCapacity != 500 {
		t.Fatalf("expected working set capacity 500, got %d", cfg.WorkingSetCapacity)
	}
	if cfg.AnalyticsBatchSize != 50 {
		t.Fatalf("expected default batch size 50, got %d", cfg.AnalyticsBatchSize)
	}
	if cfg.SentryEnvironment != "development" {
		t.Fatalf("sentry environment should follow ENV, got %q", cfg.SentryEnvironment)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected default CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MEMORY_SWEEP_INTERVAL", "45s")
	t.Setenv("MEMORY_HEAP_THRESHOLD_MB", "0")
	t.Setenv("ANALYTICS_BATCH_SIZE", "200")
	t.Setenv("ANALYTICS_MAX_QUEUE", "10")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://pricing.example.com, https://admin.example.com")
	t.Setenv("ENV", "production")
	ResetForTest()
	t.Cleanup(ResetForTest)

	cfg := Load()
	if cfg.SweepInterval != 45*time.Second {
		t.Errorf("expected 45s sweep, got %v", cfg.SweepInterval)
	}
	if cfg.HeapThresholdBytes() != 0 {
		t.Errorf("zero threshold should disable, got %d", cfg.HeapThresholdBytes())
	}
	if cfg.AnalyticsMaxQueue != 200 {
		t.Errorf("max queue should be raised to the batch size, got %d", cfg.AnalyticsMaxQueue)
	}
	want := []string{"https://pricing.example.com", "https://admin.example.com"}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, want) {
		t.Errorf("expected %v, got %v", want, cfg.CORSAllowedOrigins)
	}
	if !cfg.IsProduction() {
		t.Error("expected production")
	}
	if Load() != cfg {
		t.Error("Load should return the cached config")
	}
}
