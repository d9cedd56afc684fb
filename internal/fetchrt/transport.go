package fetchrt

import (
	"context"
	"net/http"
)

// Request is one downstream call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// Directive and Field identify the annotated field for events and logs.
	Directive string
	Field     string
}

// Response is a fully read downstream response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Transport performs downstream calls.
// Implementations MUST be safe for concurrent use: the runtime issues calls
// for independent fields from multiple goroutines.
//
// Provided implementations:
//   - internal/httptp.Transport: net/http client with default timeout and events
//   - MockTransport: canned responses for tests
type Transport interface {
	// Do sends req. A non-nil error means no response status is known.
	Do(ctx context.Context, req *Request) (*Response, error)
}
