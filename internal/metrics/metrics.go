package metrics

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shelftags"

// Metrics groups the collectors registered for one process.
type Metrics struct {
	registry       *prometheus.Registry
	sessions       *prometheus.CounterVec
	announcements  prometheus.Counter
	emitted        *prometheus.CounterVec
	workerOutcomes *prometheus.CounterVec
	fetchDuration  prometheus.Histogram
	cacheLookups   *prometheus.CounterVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Identify sessions by coordinator mode.",
		}, []string{"mode"}),
		announcements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_total",
			Help:      "Items announced by the companion lookup pool.",
		}),
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_emitted_total",
			Help:      "Records delivered to the host sink, by merge result.",
		}, []string{"kind"}),
		workerOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_outcomes_total",
			Help:      "Shelf worker terminal outcomes.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent retrieving shelves pages.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Shelves page cache lookups by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.sessions,
		m.announcements,
		m.emitted,
		m.workerOutcomes,
		m.fetchDuration,
		m.cacheLookups,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionStarted(mode string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(mode).Inc()
}

func (m *Metrics) ItemAnnounced() {
	if m == nil {
		return
	}
	m.announcements.Inc()
}

// RecordEmitted counts a delivered record; kind is "merged", "tags_only", or
// "standalone".
func (m *Metrics) RecordEmitted(kind string) {
	if m == nil {
		return
	}
	m.emitted.WithLabelValues(kind).Inc()
}

func (m *Metrics) WorkerFinished(outcome string) {
	if m == nil {
		return
	}
	m.workerOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Sample is one counter value flattened out of the registry.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// Snapshot gathers every counter and histogram count, sorted by name and
// labels. Histograms report their observation count.
func (m *Metrics) Snapshot() ([]Sample, error) {
	if m == nil {
		return nil, nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	var out []Sample
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			pairs := make([]string, 0, len(metric.GetLabel()))
			for _, label := range metric.GetLabel() {
				pairs = append(pairs, label.GetName()+"="+label.GetValue())
			}
			sample := Sample{Name: family.GetName(), Labels: strings.Join(pairs, ",")}
			switch {
			case metric.GetCounter() != nil:
				sample.Value = metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				sample.Value = float64(metric.GetHistogram().GetSampleCount())
			default:
				continue
			}
			out = append(out, sample)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Labels < out[j].Labels
	})
	return out, nil
}

// Value returns the counter value for name with the given "k=v" label string.
func (m *Metrics) Value(name, labels string) float64 {
	samples, err := m.Snapshot()
	if err != nil {
		return 0
	}
	for _, s := range samples {
		if s.Name == name && s.Labels == labels {
			return s.Value
		}
	}
	return 0
}
