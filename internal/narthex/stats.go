package narthex

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	at         time.Time
	op         string
	durationMs int64
	failed     bool
}

// Latency is an aggregate of latency samples.
type Latency struct {
	Count  int     `json:"count"`
	Failed int     `json:"failed"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// StatsSnapshot is a point-in-time view of upstream call latencies, overall
// and per operation (info, index, status, sample, histogram, ...).
type StatsSnapshot struct {
	Latency
	Operations map[string]Latency `json:"operations"`
}

// LatencyStats tracks recent upstream call latencies within a rolling window.
type LatencyStats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewLatencyStats(maxAge time.Duration) *LatencyStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &LatencyStats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
	}
}

// Record adds one call. Negative durations are clamped to zero.
func (s *LatencyStats) Record(op string, durationMs int64, failed bool) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, sample{
		at:         now,
		op:         op,
		durationMs: max(durationMs, 0),
		failed:     failed,
	})
}

func (s *LatencyStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	s.pruneLocked(now)
	byOp := make(map[string][]sample)
	for _, sm := range s.samples {
		byOp[sm.op] = append(byOp[sm.op], sm)
	}
	all := slices.Clone(s.samples)
	s.mu.Unlock()

	snap := StatsSnapshot{
		Latency:    summarize(all),
		Operations: make(map[string]Latency, len(byOp)),
	}
	for op, samples := range byOp {
		snap.Operations[op] = summarize(samples)
	}
	return snap
}

func (s *LatencyStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	s.samples = slices.DeleteFunc(s.samples, func(sm sample) bool {
		return sm.at.Before(cutoff)
	})
}

func summarize(samples []sample) Latency {
	if len(samples) == 0 {
		return Latency{}
	}
	values := make([]int64, 0, len(samples))
	var sum int64
	failed := 0
	for _, sm := range samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
		if sm.failed {
			failed++
		}
	}
	slices.Sort(values)

	return Latency{
		Count:  len(values),
		Failed: failed,
		MinMs:  values[0],
		MaxMs:  values[len(values)-1],
		AvgMs:  float64(sum) / float64(len(values)),
		P50Ms:  percentile(values, 50),
		P95Ms:  percentile(values, 95),
		P99Ms:  percentile(values, 99),
	}
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	index := float64(len(sorted)-1) * pct / 100
	lower := int(index)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(index-float64(lower))
}
