package fetchrt

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
)

// MockTransport implements Transport and returns pre-seeded responses in
// order, while recording Do invocations for inspection.
type MockTransport struct {
	mu        sync.Mutex
	responses []*Response
	errs      []error
	idx       int
	calls     []Request
}

// NewMockTransport returns the provided responses in order for successive
// Do calls.
func NewMockTransport(responses ...*Response) *MockTransport {
	return &MockTransport{responses: append([]*Response(nil), responses...)}
}

// NewMockTransportWithErrors seeds per-call errors alongside responses.
// For call i, if errs[i] is non-nil, Do returns that error and ignores
// responses[i].
func NewMockTransportWithErrors(responses []*Response, errs []error) *MockTransport {
	return &MockTransport{
		responses: append([]*Response(nil), responses...),
		errs:      append([]error(nil), errs...),
	}
}

// JSONResponse is a 200 response with a JSON body.
func JSONResponse(body string) *Response {
	return &Response{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   []byte(body),
	}
}

// Do records the call and returns the next queued response.
func (m *MockTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := *req
	rec.Header = req.Header.Clone()
	rec.Body = bytes.Clone(req.Body)
	m.calls = append(m.calls, rec)

	if m.idx >= len(m.responses) && m.idx >= len(m.errs) {
		return nil, fmt.Errorf("mock transport: no more responses")
	}
	if m.idx < len(m.errs) {
		if err := m.errs[m.idx]; err != nil {
			m.idx++
			return nil, err
		}
	}
	var resp *Response
	if m.idx < len(m.responses) {
		resp = m.responses[m.idx]
	}
	m.idx++
	if resp == nil {
		return nil, fmt.Errorf("mock transport: nil response")
	}
	return resp, nil
}

// Calls returns a snapshot of recorded requests.
func (m *MockTransport) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}
