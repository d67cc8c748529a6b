package ember

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/abdul-hamid-achik/ember/pkg/route"
)

// Dispatch outcomes, used as the outcome metric label and span attribute.
const (
	OutcomeHandler  = "handler"
	OutcomeError    = "error"
	OutcomeFallback = "fallback"
	OutcomeNotFound = "not_found"
	OutcomeHealth   = "health"
)

// Metrics holds the dispatcher's Prometheus collectors.
type Metrics struct {
	requestsTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	cacheEntries  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil
// reg leaves them unregistered, which is what tests usually want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ember",
				Subsystem: "dispatch",
				Name:      "requests_total",
				Help:      "Total number of dispatched requests",
			},
			[]string{"method", "outcome"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ember",
				Subsystem: "dispatch",
				Name:      "duration_seconds",
				Help:      "Dispatch latency in seconds, handler time included",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"method"},
		),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ember",
			Subsystem: "match_cache",
			Name:      "hits_total",
			Help:      "Total number of match cache hits",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ember",
			Subsystem: "match_cache",
			Name:      "misses_total",
			Help:      "Total number of match cache misses",
		}),
		cacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ember",
			Subsystem: "match_cache",
			Name:      "entries",
			Help:      "Number of cached match outcomes",
		}),
	}
	m.init()
	return m
}

// init touches every label combination so series exist from startup.
func (m *Metrics) init() {
	for _, verb := range route.Verbs {
		m.duration.WithLabelValues(verb)
		for _, outcome := range []string{OutcomeHandler, OutcomeError, OutcomeFallback, OutcomeNotFound} {
			m.requestsTotal.WithLabelValues(verb, outcome)
		}
	}
}

func (m *Metrics) observe(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if !route.IsVerb(method) {
		method = "OTHER"
	}
	m.requestsTotal.WithLabelValues(method, outcome).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) cacheLookup(hit bool, entries int) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
	m.cacheEntries.Set(float64(entries))
}
