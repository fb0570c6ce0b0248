package dispatcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
)

func TestHTTPDispatcherDispatchSuccess(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	var gotEvent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type = %q, want application/json", got)
		}

		gotEvent = r.Header.Get("X-Webhook-Event")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("failed to read request body: %v", err)
		}
		gotBody = body

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"received":true}`))
	}))
	defer server.Close()

	d := NewHTTPDispatcher(0)

	resp, err := d.Dispatch(context.Background(), Request{
		URL:     server.URL,
		Body:    []byte(`{"amount":10}`),
		Headers: map[string]string{"X-Webhook-Event": "order.created"},
	})
	if err != nil {
		t.Fatalf("Dispatch() unexpected error: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if resp.Body != `{"received":true}` {
		t.Fatalf("Body = %q", resp.Body)
	}
	if string(gotBody) != `{"amount":10}` {
		t.Fatalf("request body = %q", gotBody)
	}
	if gotEvent != "order.created" {
		t.Fatalf("event header = %q, want order.created", gotEvent)
	}
}

func TestHTTPDispatcherStatusClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		statusCode    int
		wantTransient bool
	}{
		{name: "too many requests is transient", statusCode: http.StatusTooManyRequests, wantTransient: true},
		{name: "internal server error is transient", statusCode: http.StatusInternalServerError, wantTransient: true},
		{name: "bad gateway is transient", statusCode: http.StatusBadGateway, wantTransient: true},
		{name: "bad request is permanent", statusCode: http.StatusBadRequest, wantTransient: false},
		{name: "not found is permanent", statusCode: http.StatusNotFound, wantTransient: false},
		{name: "gone is permanent", statusCode: http.StatusGone, wantTransient: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				_, _ = w.Write([]byte("target failed"))
			}))
			defer server.Close()

			d := NewHTTPDispatcher(0)
			_, err := d.Dispatch(context.Background(), Request{URL: server.URL, Body: []byte(`{}`)})
			if err == nil {
				t.Fatal("Dispatch() should fail on non-2xx status")
			}

			var dispatchErr *DispatchError
			if !errors.As(err, &dispatchErr) {
				t.Fatalf("error type = %T, want *DispatchError", err)
			}
			if dispatchErr.StatusCode != tc.statusCode {
				t.Fatalf("StatusCode = %d, want %d", dispatchErr.StatusCode, tc.statusCode)
			}
			if IsTransient(err) != tc.wantTransient {
				t.Fatalf("IsTransient = %v, want %v", IsTransient(err), tc.wantTransient)
			}
		})
	}
}

func TestHTTPDispatcherTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := resty.New()
	client.SetTimeout(50 * time.Millisecond)
	d, err := NewHTTPDispatcherWithClient(client)
	if err != nil {
		t.Fatalf("NewHTTPDispatcherWithClient() error = %v", err)
	}

	_, err = d.Dispatch(context.Background(), Request{URL: server.URL, Body: []byte(`{}`)})
	if err == nil {
		t.Fatal("Dispatch() should fail on timeout")
	}
	if !IsTransient(err) {
		t.Fatal("timeout should be classified transient")
	}
}

func TestHTTPDispatcherInvalidURL(t *testing.T) {
	t.Parallel()

	d := NewHTTPDispatcher(0)
	if _, err := d.Dispatch(context.Background(), Request{URL: "not a url"}); err == nil {
		t.Fatal("Dispatch() should reject an invalid url")
	}
	if _, err := d.Dispatch(context.Background(), Request{}); err == nil {
		t.Fatal("Dispatch() should reject an empty url")
	}
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	if IsTransient(nil) {
		t.Fatal("nil error is not transient")
	}
	if !IsTransient(context.DeadlineExceeded) {
		t.Fatal("deadline exceeded should be transient")
	}
	if IsTransient(context.Canceled) {
		t.Fatal("cancellation should not be transient")
	}
	if IsTransient(errors.New("boom")) {
		t.Fatal("unclassified errors should not be transient")
	}
}
