// Package metrics exposes relay server counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the relay's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ImageBytes      prometheus.Histogram
	RateLimitHits   prometheus.Counter
}

func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "relay"
	}
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Relay requests by route and status code",
		},
		[]string{"route", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Relay request duration in seconds, vendor call included",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"route"},
	)

	imageBytes := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_upload_bytes",
			Help:      "Size of accepted image upload bodies",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 4, 6),
		},
	)

	rateLimitHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Image uploads rejected by the rate limiter",
		},
	)

	registry.MustRegister(requestsTotal, requestDuration, imageBytes, rateLimitHits)

	return &Metrics{
		registry:        registry,
		RequestsTotal:   requestsTotal,
		RequestDuration: requestDuration,
		ImageBytes:      imageBytes,
		RateLimitHits:   rateLimitHits,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest records one finished request.
func (m *Metrics) RecordRequest(route, status string, d time.Duration) {
	m.RequestsTotal.WithLabelValues(route, status).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) RecordImage(n int) {
	m.ImageBytes.Observe(float64(n))
}

func (m *Metrics) RecordRateLimited() {
	m.RateLimitHits.Inc()
}
