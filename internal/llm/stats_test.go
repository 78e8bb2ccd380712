package llm

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestLLMStatsSnapshotPercentiles(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	for _, ms := range []int64{300, 100, 500, 200, 400} {
		stats.Record(ms, nil)
	}
	stats.Record(-5, errors.New("boom"))

	snap := stats.Snapshot()
	if snap.Count != 6 || snap.Failures != 1 {
		t.Fatalf("count/failures = %d/%d", snap.Count, snap.Failures)
	}
	if snap.MinMs != 0 || snap.MaxMs != 500 {
		t.Fatalf("min/max = %d/%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 250 {
		t.Fatalf("avg = %f, want 250", snap.AvgMs)
	}
	// Sorted: 0 100 200 300 400 500.
	if math.Abs(snap.P50Ms-250) > 1e-9 {
		t.Errorf("p50 = %f, want 250", snap.P50Ms)
	}
	if math.Abs(snap.P95Ms-475) > 1e-9 {
		t.Errorf("p95 = %f, want 475", snap.P95Ms)
	}
	if math.Abs(snap.P99Ms-495) > 1e-9 {
		t.Errorf("p99 = %f, want 495", snap.P99Ms)
	}
}

func TestLLMStatsExpiresOldSamples(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	stats := NewLLMStats(time.Minute)
	stats.now = func() time.Time { return now }

	stats.Record(100, nil)
	now = now.Add(2 * time.Minute)
	stats.Record(200, nil)

	snap := stats.Snapshot()
	if snap.Count != 1 || snap.MinMs != 200 {
		t.Fatalf("expected only the fresh sample, got %+v", snap)
	}

	now = now.Add(2 * time.Minute)
	if snap := stats.Snapshot(); snap.Count != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}
