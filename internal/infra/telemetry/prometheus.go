package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"composer/internal/domain"
)

type PrometheusMetrics struct {
	sourceFetches       *prometheus.CounterVec
	sourceFetchDuration *prometheus.HistogramVec
	pendingSources      *prometheus.GaugeVec
	catalogEntries      prometheus.Gauge
	catalogReady        prometheus.Gauge
	invalidEntries      prometheus.Counter
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		sourceFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "composer_source_fetch_total",
				Help: "Total number of settled source fetches",
			},
			[]string{"kind", "result"},
		),
		sourceFetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "composer_source_fetch_duration_seconds",
				Help:    "Duration of source fetches in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"kind"},
		),
		pendingSources: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "composer_source_pending",
				Help: "Current number of sources whose fetch has not settled",
			},
			[]string{"kind"},
		),
		catalogEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "composer_catalog_entries",
				Help: "Number of content ids in the resolved catalog",
			},
		),
		catalogReady: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "composer_catalog_ready",
				Help: "1 when every source list is loaded and every fetch has settled",
			},
		),
		invalidEntries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "composer_catalog_invalid_entries_total",
				Help: "Total number of entries skipped for an invalid version",
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveSourceFetch(kind domain.SourceKind, result domain.FetchResult, duration time.Duration) {
	p.sourceFetches.WithLabelValues(string(kind), string(result)).Inc()
	if result != domain.FetchResultDiscarded {
		p.sourceFetchDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
	}
}

func (p *PrometheusMetrics) SetPendingSources(kind domain.SourceKind, count int) {
	p.pendingSources.WithLabelValues(string(kind)).Set(float64(count))
}

func (p *PrometheusMetrics) SetCatalogEntries(count int) {
	p.catalogEntries.Set(float64(count))
}

func (p *PrometheusMetrics) SetCatalogReady(ready bool) {
	if ready {
		p.catalogReady.Set(1)
		return
	}
	p.catalogReady.Set(0)
}

func (p *PrometheusMetrics) ObserveInvalidEntries(count int) {
	if count > 0 {
		p.invalidEntries.Add(float64(count))
	}
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
