package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the HTTP API and dataset loads.
type Metrics struct {
	// Request latency by route pattern, method and status
	RequestDuration *prometheus.HistogramVec

	// Dataset loads by result ("ok", "error")
	Loads *prometheus.CounterVec

	// Load latency, source open through Dataset build
	LoadDuration prometheus.Histogram

	// Shape of the dataset currently served
	Records   prometheus.Gauge
	Coercions prometheus.Gauge
}

// New creates a Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "immistat_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route, method and status",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route", "method", "status"}),

		Loads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "immistat_dataset_loads_total",
			Help: "Total dataset loads by result",
		}, []string{"result"}),

		LoadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "immistat_dataset_load_duration_seconds",
			Help:    "Duration of dataset loads",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		Records: f.NewGauge(prometheus.GaugeOpts{
			Name: "immistat_dataset_records",
			Help: "Number of district records in the served dataset",
		}),

		Coercions: f.NewGauge(prometheus.GaugeOpts{
			Name: "immistat_dataset_coerced_cells",
			Help: "Number of count cells coerced to 0 or rounded in the served dataset",
		}),
	}
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method, status string, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(route, method, status).Observe(d.Seconds())
	}
}

// ObserveLoad records a successful load and the served dataset's shape.
func (m *Metrics) ObserveLoad(records, coercions int, d time.Duration) {
	if m != nil {
		m.Loads.WithLabelValues("ok").Inc()
		m.LoadDuration.Observe(d.Seconds())
		m.Records.Set(float64(records))
		m.Coercions.Set(float64(coercions))
	}
}

// IncrementLoadFailure records a failed load.
func (m *Metrics) IncrementLoadFailure() {
	if m != nil {
		m.Loads.WithLabelValues("error").Inc()
	}
}
