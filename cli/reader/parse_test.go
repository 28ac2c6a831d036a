package reader

import (
	"strings"
	"testing"
)

func TestParseMetricsRecord_JSONRoundTrip(t *testing.T) {
	record := map[string]any{
		"record_kind":         "metrics",
		"ts":                  "2026-03-01T10:00:03Z",
		"samples_attempted":   float64(20),
		"samples_scored":      float64(18),
		"samples_correct":     float64(15),
		"invocation_failures": float64(2),
		"short_reads":         float64(1),
		"bytes_sent":          float64(15680),
		"suite":               "mnist",
		"policy":              "buffered",
		"storage_backend":     "s3",
		"run_id":              "run-abc",
	}

	parsed, err := ParseMetricsRecord(record)
	if err != nil {
		t.Fatalf("ParseMetricsRecord failed: %v", err)
	}
	if parsed.SamplesAttempted != 20 || parsed.SamplesScored != 18 || parsed.SamplesCorrect != 15 {
		t.Errorf("unexpected sample counters: %+v", parsed)
	}
	if parsed.InvocationFailures != 2 || parsed.ShortReads != 1 {
		t.Errorf("unexpected failure counters: %+v", parsed)
	}
	if parsed.BytesSent != 15680 {
		t.Errorf("BytesSent = %d, want 15680", parsed.BytesSent)
	}
	if parsed.Suite != "mnist" || parsed.Policy != "buffered" || parsed.StorageBackend != "s3" {
		t.Errorf("unexpected dimensions: %+v", parsed)
	}
}

func TestParseMetricsRecord_DirectInt64(t *testing.T) {
	record := map[string]any{
		"ts":                "2026-03-01T10:00:03Z",
		"samples_attempted": int64(4),
		"samples_scored":    int(3),
		"policy":            "strict",
		"run_id":            "run-1",
	}
	parsed, err := ParseMetricsRecord(record)
	if err != nil {
		t.Fatalf("ParseMetricsRecord failed: %v", err)
	}
	if parsed.SamplesAttempted != 4 || parsed.SamplesScored != 3 {
		t.Errorf("unexpected counters: %+v", parsed)
	}
}

func TestParseMetricsRecord_NilRecord(t *testing.T) {
	if _, err := ParseMetricsRecord(nil); err == nil {
		t.Error("expected error for nil record")
	}
}

func TestParseMetricsRecord_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		record map[string]any
		errMsg string
	}{
		{
			name:   "missing ts",
			record: map[string]any{"run_id": "run-1", "policy": "strict"},
			errMsg: "ts",
		},
		{
			name:   "missing run_id",
			record: map[string]any{"ts": "2026-03-01T10:00:00Z", "policy": "strict"},
			errMsg: "run_id",
		},
		{
			name:   "missing policy",
			record: map[string]any{"ts": "2026-03-01T10:00:00Z", "run_id": "run-1"},
			errMsg: "policy",
		},
		{
			name:   "all required missing",
			record: map[string]any{"record_kind": "metrics"},
			errMsg: "ts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMetricsRecord(tt.record)
			if err == nil {
				t.Fatal("expected error for missing required field, got nil")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %q, want it to mention %q", err.Error(), tt.errMsg)
			}
		})
	}
}
