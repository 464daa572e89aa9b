package snapshot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/japaniel/eldamo/pkg/eldamo"
)

// Metrics exposes reload activity. A nil *Metrics records nothing.
type Metrics struct {
	reloads       *prometheus.CounterVec
	duration      prometheus.Histogram
	words         prometheus.Gauge
	refs          prometheus.Gauge
	keyCollisions prometheus.Gauge
	hits          prometheus.Counter
}

// NewMetrics registers the cache metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eldamo",
			Subsystem: "snapshot",
			Name:      "reloads_total",
			Help:      "Reload attempts by result.",
		}, []string{"result"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "eldamo",
			Subsystem: "snapshot",
			Name:      "reload_duration_seconds",
			Help:      "Time to fetch, parse and index a document.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		words: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "eldamo",
			Subsystem: "snapshot",
			Name:      "words",
			Help:      "Words in the published snapshot, nested variants included.",
		}),
		refs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "eldamo",
			Subsystem: "snapshot",
			Name:      "refs",
			Help:      "References in the published snapshot.",
		}),
		keyCollisions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "eldamo",
			Subsystem: "snapshot",
			Name:      "key_collisions",
			Help:      "Words shadowed by a later word with the same language and spelling.",
		}),
		hits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "eldamo",
			Subsystem: "snapshot",
			Name:      "fresh_hits_total",
			Help:      "Accesses served from the published snapshot without reloading.",
		}),
	}
}

func (m *Metrics) observeReload(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reloads.WithLabelValues(result).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) observePublish(s eldamo.Stats) {
	if m == nil {
		return
	}
	m.words.Set(float64(s.Words))
	m.refs.Set(float64(s.Refs))
	m.keyCollisions.Set(float64(s.KeyCollisions))
}

func (m *Metrics) hit() {
	if m == nil {
		return
	}
	m.hits.Inc()
}
