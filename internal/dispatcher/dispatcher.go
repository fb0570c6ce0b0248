package dispatcher

import "context"

// Dispatcher is the outbound webhook delivery port.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) (*Response, error)
}

// Request is one outbound HTTP push.
type Request struct {
	URL     string
	Body    []byte
	Headers map[string]string
}

// Response stores delivery call metadata for attempt accounting.
type Response struct {
	StatusCode     int
	Body           string
	DurationMillis int64
}
