package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"trace", LevelTrace, false},
		{"DEBUG", LevelDebug, false},
		{" info ", LevelInfo, false},
		{"warning", LevelWarning, false},
		{"WARN", LevelWarning, false},
		{"error", LevelError, false},
		{"fatal", LevelFatal, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWarnHttp4xxCountsSpecificStatuses(t *testing.T) {
	before404 := Total404Errors.Load()
	before409 := Total409Errors.Load()
	before4xx := Total4xxErrors.Load()

	WarnHttp4xx(404)
	WarnHttp4xx(409)
	WarnHttp4xx(418)

	if got := Total404Errors.Load() - before404; got != 1 {
		t.Errorf("404 counter delta = %d, want 1", got)
	}
	if got := Total409Errors.Load() - before409; got != 1 {
		t.Errorf("409 counter delta = %d, want 1", got)
	}
	if got := Total4xxErrors.Load() - before4xx; got != 3 {
		t.Errorf("4xx counter delta = %d, want 3", got)
	}
}

func TestWarnAlwaysCountsEvenWhenSampledOut(t *testing.T) {
	SetSampleRate(1_000_000)
	defer SetSampleRate(100)

	before := TotalWarnings.Load()
	for i := 0; i < 10; i++ {
		Warn("sampled warning", "i", i)
	}
	if got := TotalWarnings.Load() - before; got != 10 {
		t.Errorf("TotalWarnings delta = %d, want 10", got)
	}
}

func TestSnapshotContainsCounters(t *testing.T) {
	snap := Snapshot()
	for _, key := range []string{"errors", "warnings", "http5xx", "ruleEvalFailures", "catalogReadFailures"} {
		if _, ok := snap[key]; !ok {
			t.Errorf("Snapshot() missing key %q", key)
		}
	}
}

func TestSetLevelRoundTrip(t *testing.T) {
	prev := GetLevel()
	defer SetLevel(prev)

	SetLevel(LevelTrace)
	if got := GetLevel(); got != LevelTrace {
		t.Errorf("GetLevel() = %v, want %v", got, LevelTrace)
	}
	// Trace output is enabled at the trace level.
	if !Logger.Enabled(context.Background(), LevelTrace) {
		t.Error("expected trace records to be enabled")
	}
}
