package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsWorkerCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncWebhookReceived("EP-1")
	metrics.IncWebhookRejected("ep-1", "rate_limited")
	metrics.IncWebhookProcessed("ep-1", "processed")
	metrics.IncDelivery("delivered")
	metrics.ObserveDeliveryAttemptDuration("delivered", 120*time.Millisecond)
	metrics.IncWorkerInFlight("webhooks.ingest")
	metrics.DecWorkerInFlight("webhooks.ingest")
	metrics.IncRetryScheduled("delivery")

	if got := testutil.ToFloat64(metrics.webhooksReceivedTotal.WithLabelValues("ep-1")); got != 1 {
		t.Fatalf("webhooks_received_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.webhooksRejectedTotal.WithLabelValues("ep-1", "rate_limited")); got != 1 {
		t.Fatalf("webhooks_rejected_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.webhooksProcessedTotal.WithLabelValues("ep-1", "processed")); got != 1 {
		t.Fatalf("webhooks_processed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.deliveriesTotal.WithLabelValues("delivered")); got != 1 {
		t.Fatalf("deliveries_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.retryScheduledTotal.WithLabelValues("delivery")); got != 1 {
		t.Fatalf("retry_scheduled_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.workerInflight.WithLabelValues("webhooks.ingest")); got != 0 {
		t.Fatalf("worker_inflight = %v, want 0", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	_, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}
