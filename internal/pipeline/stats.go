package pipeline

import (
	"slices"
	"sync"
	"time"
)

// LatencySnapshot aggregates the samples inside the rolling window.
type LatencySnapshot struct {
	Count   int     `json:"count"`
	MinMs   int64   `json:"min_ms"`
	MaxMs   int64   `json:"max_ms"`
	AvgMs   float64 `json:"avg_ms"`
	P50Ms   float64 `json:"p50_ms"`
	P95Ms   float64 `json:"p95_ms"`
	P99Ms   float64 `json:"p99_ms"`
	Window  string  `json:"window"`
	Dropped int     `json:"dropped"`
}

type latencySample struct {
	at time.Time
	ms int64
}

// LatencyStats keeps recent partition latencies. Samples older than the
// window are pruned, and at most maxLatencySamples are retained.
type LatencyStats struct {
	mu      sync.Mutex
	window  time.Duration
	samples []latencySample
	dropped int
	now     func() time.Time
}

const maxLatencySamples = 10000

func NewLatencyStats(window time.Duration) *LatencyStats {
	if window <= 0 {
		window = time.Hour
	}
	return &LatencyStats{window: window, now: time.Now}
}

// Record adds one observation. Negative durations count as zero.
func (s *LatencyStats) Record(ms int64) {
	ms = max(ms, 0)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.prune(now)
	if len(s.samples) == maxLatencySamples {
		s.samples = s.samples[1:]
		s.dropped++
	}
	s.samples = append(s.samples, latencySample{at: now, ms: ms})
}

func (s *LatencyStats) Snapshot() LatencySnapshot {
	s.mu.Lock()
	s.prune(s.now())
	values := make([]int64, len(s.samples))
	for i, sm := range s.samples {
		values[i] = sm.ms
	}
	snap := LatencySnapshot{Window: s.window.String(), Dropped: s.dropped}
	s.mu.Unlock()

	if len(values) == 0 {
		return snap
	}
	slices.Sort(values)
	var sum int64
	for _, v := range values {
		sum += v
	}
	snap.Count = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

// prune drops samples outside the window. Samples are in time order.
func (s *LatencyStats) prune(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.samples) && s.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.samples = append(s.samples[:0], s.samples[i:]...)
	}
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	rank := float64(len(sorted)-1) * pct / 100
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}
