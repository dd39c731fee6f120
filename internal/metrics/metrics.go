package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
)

// mismatchLabel is the dimension label used for the aggregate
// dimension-mismatch record.
const mismatchLabel = "_mismatch"

// Metrics observes clip results.
type Metrics interface {
	ObserveClip(res safety.ClipResult, names []string)
	ObserveReload(ok bool)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) ObserveClip(safety.ClipResult, []string) {}
func (Noop) ObserveReload(bool)                      {}

// Prom implements Metrics backed by Prometheus counters.
type Prom struct {
	clipCalls  *prometheus.CounterVec
	violations *prometheus.CounterVec
	modified   *prometheus.CounterVec
	reloads    *prometheus.CounterVec
	once       sync.Once
}

// NewProm builds and registers the counters on the default registerer.
func NewProm(namespace string) *Prom {
	p := &Prom{
		clipCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clip_calls_total",
			Help:      "Clip calls by aggregate safety outcome",
		}, []string{"safe"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dimension_violations_total",
			Help:      "Soft, hard and invariant violations per dimension",
		}, []string{"dimension", "kind"}),
		modified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dimension_modified_total",
			Help:      "Values altered by the envelope per dimension",
		}, []string{"dimension"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_reloads_total",
			Help:      "Bounds profile reload attempts by result",
		}, []string{"result"}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.clipCalls, p.violations, p.modified, p.reloads)
	})
}

// ObserveClip counts the call and every non-none stat. names maps dimension
// indexes to labels; unnamed dimensions use their index.
func (p *Prom) ObserveClip(res safety.ClipResult, names []string) {
	p.clipCalls.WithLabelValues(strconv.FormatBool(res.IsSafe)).Inc()
	for _, st := range res.Stats {
		dim := dimensionLabel(st.Dimension, names)
		if st.Violation != safety.ViolationNone {
			p.violations.WithLabelValues(dim, st.Violation.String()).Inc()
		}
		if st.WasModified {
			p.modified.WithLabelValues(dim).Inc()
		}
	}
}

func (p *Prom) ObserveReload(ok bool) {
	result := "ok"
	if !ok {
		result = "rejected"
	}
	p.reloads.WithLabelValues(result).Inc()
}

func dimensionLabel(dim int, names []string) string {
	if dim < 0 {
		return mismatchLabel
	}
	if dim < len(names) && names[dim] != "" {
		return names[dim]
	}
	return strconv.Itoa(dim)
}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
