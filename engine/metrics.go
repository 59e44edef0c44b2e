package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine metrics.  A nil *Metrics records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	tags        *prometheus.CounterVec
	runDuration prometheus.Histogram
	tableRows   *prometheus.GaugeVec
	passes      prometheus.Counter
}

// Register the engine metrics with reg, typically prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecloudframes",
			Name:      "runs_total",
			Help:      "Runs processed, by result",
		}, []string{"result"}),
		tags: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecloudframes",
			Name:      "tag_extractions_total",
			Help:      "Tag extractions, by tag and status",
		}, []string{"tag", "status"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ecloudframes",
			Name:      "run_duration_seconds",
			Help:      "Time to load, extract and commit one run",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		tableRows: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ecloudframes",
			Name:      "table_rows",
			Help:      "Rows in the store, by tag",
		}, []string{"tag"}),
		passes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ecloudframes",
			Name:      "passes_total",
			Help:      "Engine passes started",
		}),
	}
}

func (m *Metrics) pass() {
	if m != nil {
		m.passes.Inc()
	}
}

func (m *Metrics) run(r *RunResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(r.Status.String()).Inc()
	m.runDuration.Observe(elapsed.Seconds())
	for _, o := range r.Outcomes {
		m.tags.WithLabelValues(o.Tag.Name, o.Status.String()).Inc()
	}
}

func (m *Metrics) tableSize(tag string, n int) {
	if m != nil {
		m.tableRows.WithLabelValues(tag).Set(float64(n))
	}
}

