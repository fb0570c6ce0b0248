package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultTimeout bounds every outbound delivery call.
	DefaultTimeout = 30 * time.Second

	userAgent = "hookrelay/1.0"
)

// HTTPDispatcher posts payloads to webhook targets over HTTP.
type HTTPDispatcher struct {
	client *resty.Client
}

func NewHTTPDispatcher(timeout time.Duration) *HTTPDispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)
	// Retries are handled by the delivery pipeline, one attempt per call.
	client.SetRetryCount(0)

	return &HTTPDispatcher{client: client}
}

func NewHTTPDispatcherWithClient(client *resty.Client) (*HTTPDispatcher, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(DefaultTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPDispatcher{client: client}, nil
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, req Request) (*Response, error) {
	if d == nil || d.client == nil {
		return nil, fmt.Errorf("dispatcher is not initialized")
	}
	if strings.TrimSpace(req.URL) == "" {
		return nil, fmt.Errorf("target url is required")
	}
	if _, err := url.ParseRequestURI(req.URL); err != nil {
		return nil, fmt.Errorf("invalid target url: %w", err)
	}

	request := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", userAgent).
		SetBody(req.Body)
	for key, value := range req.Headers {
		request.SetHeader(key, value)
	}

	start := time.Now()
	response, err := request.Post(req.URL)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return nil, &DispatchError{
			Message:        "delivery request failed",
			Transient:      !errors.Is(err, context.Canceled),
			DurationMillis: elapsed,
			Cause:          err,
		}
	}
	if response == nil {
		return nil, &DispatchError{
			Message:        "delivery returned empty response",
			Transient:      true,
			DurationMillis: elapsed,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &Response{
			StatusCode:     statusCode,
			Body:           responseBody,
			DurationMillis: elapsed,
		}, nil
	}

	return nil, &DispatchError{
		StatusCode:     statusCode,
		Message:        dispatchErrorMessage(statusCode, responseBody),
		Transient:      isTransientHTTPStatus(statusCode),
		ResponseBody:   responseBody,
		DurationMillis: elapsed,
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func dispatchErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("target returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
