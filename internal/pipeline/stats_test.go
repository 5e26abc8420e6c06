package pipeline

import (
	"testing"
	"time"
)

func TestLatencyStatsPercentiles(t *testing.T) {
	stats := NewLatencyStats(time.Hour)
	for _, ms := range []int64{300, 100, 500, 200, 400} {
		stats.Record(ms)
	}

	snap := stats.Snapshot()
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 {
		t.Fatalf("expected min=100 max=500, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
	if snap.Window != "1h0m0s" {
		t.Fatalf("expected window 1h0m0s, got %q", snap.Window)
	}
}

func TestLatencyStatsPrunesOutsideWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	stats := NewLatencyStats(time.Minute)
	stats.now = func() time.Time { return now }

	stats.Record(100)
	now = now.Add(2 * time.Minute)

	if snap := stats.Snapshot(); snap.Count != 0 {
		t.Fatalf("expected count=0 after prune, got %d", snap.Count)
	}

	stats.Record(200)
	snap := stats.Snapshot()
	if snap.Count != 1 || snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected one sample of 200, got %+v", snap)
	}
}

func TestLatencyStatsClampsNegative(t *testing.T) {
	stats := NewLatencyStats(time.Hour)
	stats.Record(-10)
	snap := stats.Snapshot()
	if snap.Count != 1 {
		t.Fatalf("expected count=1, got %d", snap.Count)
	}
	if snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestLatencyStatsCapsSamples(t *testing.T) {
	stats := NewLatencyStats(time.Hour)
	for i := range maxLatencySamples + 5 {
		stats.Record(int64(i))
	}
	snap := stats.Snapshot()
	if snap.Count != maxLatencySamples {
		t.Fatalf("expected count=%d, got %d", maxLatencySamples, snap.Count)
	}
	if snap.Dropped != 5 {
		t.Fatalf("expected 5 dropped, got %d", snap.Dropped)
	}
	if snap.MinMs != 5 {
		t.Fatalf("expected oldest samples dropped, got min=%d", snap.MinMs)
	}
}

func TestLatencyStatsEmpty(t *testing.T) {
	snap := NewLatencyStats(0).Snapshot()
	if snap.Count != 0 || snap.P99Ms != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}
