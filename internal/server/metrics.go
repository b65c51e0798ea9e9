package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the sidecar's Prometheus collectors. Each Server owns its own
// registry so several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	Predictions     prometheus.Counter
	TrainUpdates    *prometheus.CounterVec
	SkippedFeatures prometheus.Counter
	WeightsLoaded   prometheus.Counter
	Checkpoints     *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors, plus the Go runtime and
// process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "hlr_predictions_total",
			Help: "Total number of recall predictions served",
		}),
		TrainUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hlr_train_updates_total",
			Help: "Training observations by outcome (updated, rejected)",
		}, []string{"result"}),
		SkippedFeatures: factory.NewCounter(prometheus.CounterOpts{
			Name: "hlr_skipped_features_total",
			Help: "Features skipped during training because their value was not finite",
		}),
		WeightsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "hlr_weights_loaded_total",
			Help: "Number of weight map uploads",
		}),
		Checkpoints: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hlr_checkpoint_requests_total",
			Help: "On-demand checkpoint requests by outcome (success, error)",
		}, []string{"result"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hlr_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"route"}),
		RequestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hlr_request_errors_total",
			Help: "HTTP requests answered with an error, by route and status code",
		}, []string{"route", "code"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observe(route string, start time.Time) {
	m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}
