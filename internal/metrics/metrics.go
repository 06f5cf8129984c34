package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "s3cleanup"

// Metrics holds the counters updated by every cleanup run. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	listed     prometheus.Counter
	candidates prometheus.Counter
	expired    prometheus.Counter
	deleted    prometheus.Counter
	runs       *prometheus.CounterVec
	lastRun    prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		listed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_listed_total",
			Help:      "Objects returned by bucket listings.",
		}),
		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_candidate_total",
			Help:      "Listed objects whose key contains the backup marker.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_expired_total",
			Help:      "Candidate objects dated on or before the retention cutoff.",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_deleted_total",
			Help:      "Objects deleted.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Cleanup runs by outcome.",
		}, []string{"status"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last cleanup run finished.",
		}),
	}
	reg.MustRegister(m.listed, m.candidates, m.expired, m.deleted, m.runs, m.lastRun)
	return m
}

func (m *Metrics) ObserveRun(status string, listed, candidates, expired, deleted int, finished time.Time) {
	if m == nil {
		return
	}
	m.listed.Add(float64(listed))
	m.candidates.Add(float64(candidates))
	m.expired.Add(float64(expired))
	m.deleted.Add(float64(deleted))
	m.runs.WithLabelValues(status).Inc()
	m.lastRun.Set(float64(finished.Unix()))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
