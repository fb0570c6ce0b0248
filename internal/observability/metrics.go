package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by API and worker flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec
	webhooksReceivedTotal   *prometheus.CounterVec
	webhooksRejectedTotal   *prometheus.CounterVec
	webhooksProcessedTotal  *prometheus.CounterVec
	deliveriesTotal         *prometheus.CounterVec
	deliveryAttemptDuration *prometheus.HistogramVec
	workerInflight          *prometheus.GaugeVec
	retryScheduledTotal     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hookrelay",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hookrelay",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		webhooksReceivedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hookrelay",
				Name:      "webhooks_received_total",
				Help:      "Total number of webhooks accepted for processing.",
			},
			[]string{"endpoint"},
		),
		webhooksRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hookrelay",
				Name:      "webhooks_rejected_total",
				Help:      "Total number of webhooks rejected at ingestion grouped by reason.",
			},
			[]string{"endpoint", "reason"},
		),
		webhooksProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hookrelay",
				Name:      "webhooks_processed_total",
				Help:      "Total number of webhooks that reached a terminal processing outcome.",
			},
			[]string{"endpoint", "outcome"},
		),
		deliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hookrelay",
				Name:      "deliveries_total",
				Help:      "Total number of deliveries that reached a terminal state.",
			},
			[]string{"outcome"},
		),
		deliveryAttemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hookrelay",
				Name:      "delivery_attempt_duration_seconds",
				Help:      "Outbound delivery attempt duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"outcome"},
		),
		workerInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "hookrelay",
				Name:      "worker_inflight",
				Help:      "Current number of in-flight worker operations grouped by queue.",
			},
			[]string{"queue"},
		),
		retryScheduledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hookrelay",
				Name:      "retry_scheduled_total",
				Help:      "Total number of retries scheduled grouped by kind.",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.webhooksReceivedTotal,
		m.webhooksRejectedTotal,
		m.webhooksProcessedTotal,
		m.deliveriesTotal,
		m.deliveryAttemptDuration,
		m.workerInflight,
		m.retryScheduledTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncWebhookReceived(endpointID string) {
	if m == nil {
		return
	}
	m.webhooksReceivedTotal.WithLabelValues(normalizeLabel(endpointID)).Inc()
}

func (m *Metrics) IncWebhookRejected(endpointID string, reason string) {
	if m == nil {
		return
	}
	m.webhooksRejectedTotal.WithLabelValues(normalizeLabel(endpointID), normalizeLabel(reason)).Inc()
}

func (m *Metrics) IncWebhookProcessed(endpointID string, outcome string) {
	if m == nil {
		return
	}
	m.webhooksProcessedTotal.WithLabelValues(normalizeLabel(endpointID), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncDelivery(outcome string) {
	if m == nil {
		return
	}
	m.deliveriesTotal.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) ObserveDeliveryAttemptDuration(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.deliveryAttemptDuration.WithLabelValues(normalizeLabel(outcome)).Observe(seconds)
}

func (m *Metrics) IncWorkerInFlight(queue string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(normalizeLabel(queue)).Inc()
}

func (m *Metrics) DecWorkerInFlight(queue string) {
	if m == nil {
		return
	}
	m.workerInflight.WithLabelValues(normalizeLabel(queue)).Dec()
}

func (m *Metrics) IncRetryScheduled(kind string) {
	if m == nil {
		return
	}
	m.retryScheduledTotal.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(v string) string {
	normalized := strings.ToLower(strings.TrimSpace(v))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
