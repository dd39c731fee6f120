package telemetry

import (
	"sync"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
)

// #region summary
// DimensionCounts aggregates outcomes for one dimension across ticks.
type DimensionCounts struct {
	Soft     int `json:"soft"`
	Hard     int `json:"hard"`
	Breach   int `json:"breach"`
	Modified int `json:"modified"`
}

// Summary is a point-in-time aggregate over every recorded clip result.
type Summary struct {
	Ticks       int                          `json:"ticks"`
	UnsafeTicks int                          `json:"unsafe_ticks"`
	Mismatches  int                          `json:"mismatches"`
	Kinds       map[safety.ViolationKind]int `json:"kinds"`
	Dimensions  []DimensionCounts            `json:"dimensions"`
}

// ViolationRate is the number of enforcement events (hard clamps and
// invariant breaches) per tick. Soft flags are advisory and not counted.
func (s Summary) ViolationRate() float64 {
	events := s.Kinds[safety.ViolationHardLimit] + s.Kinds[safety.ViolationInvariantBreach]
	ticks := s.Ticks
	if ticks < 1 {
		ticks = 1
	}
	return float64(events) / float64(ticks)
}

// SoftTrend returns the soft-flag count for one dimension, 0 if unseen.
func (s Summary) SoftTrend(dim int) int {
	if dim < 0 || dim >= len(s.Dimensions) {
		return 0
	}
	return s.Dimensions[dim].Soft
}

// #endregion summary

// #region tracker
// Tracker accumulates clip results. The zero value is ready to use and safe
// for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	summary Summary
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{summary: Summary{Kinds: make(map[safety.ViolationKind]int)}}
}

// Record folds one result into the running aggregate.
func (t *Tracker) Record(res safety.ClipResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.summary
	if s.Kinds == nil {
		s.Kinds = make(map[safety.ViolationKind]int)
	}
	s.Ticks++
	if !res.IsSafe {
		s.UnsafeTicks++
	}
	for _, st := range res.Stats {
		s.Kinds[st.Violation]++
		if st.Dimension < 0 {
			s.Mismatches++
			continue
		}
		for len(s.Dimensions) <= st.Dimension {
			s.Dimensions = append(s.Dimensions, DimensionCounts{})
		}
		dc := &s.Dimensions[st.Dimension]
		switch st.Violation {
		case safety.ViolationSoftLimit:
			dc.Soft++
		case safety.ViolationHardLimit:
			dc.Hard++
		case safety.ViolationInvariantBreach:
			dc.Breach++
		}
		if st.WasModified {
			dc.Modified++
		}
	}
}

// Snapshot returns a copy of the current aggregate.
func (t *Tracker) Snapshot() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.summary
	out.Kinds = make(map[safety.ViolationKind]int, len(t.summary.Kinds))
	for k, v := range t.summary.Kinds {
		out.Kinds[k] = v
	}
	out.Dimensions = append([]DimensionCounts(nil), t.summary.Dimensions...)
	return out
}

// Reset clears all counters.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary = Summary{Kinds: make(map[safety.ViolationKind]int)}
}

// Summarize aggregates a batch of results without a long-lived tracker.
func Summarize(results []safety.ClipResult) Summary {
	t := NewTracker()
	for _, r := range results {
		t.Record(r)
	}
	return t.Snapshot()
}

// #endregion tracker
