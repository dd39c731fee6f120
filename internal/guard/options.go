package guard

import (
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/metrics"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/telemetry"
)

// Option configures a Guard at creation time.
type Option func(*Guard)

// WithMetrics sets the metrics sink (default metrics.Noop).
func WithMetrics(m metrics.Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

// WithTracker aggregates every result into t.
func WithTracker(t *telemetry.Tracker) Option {
	return func(g *Guard) { g.tracker = t }
}

// WithRecorder persists every clip call through r.
func WithRecorder(r Recorder) Option {
	return func(g *Guard) { g.recorder = r }
}

// WithVersionID tags the initial profile with its store version.
func WithVersionID(id string) Option {
	return func(g *Guard) { g.initialVersion = id }
}
