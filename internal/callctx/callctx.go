// Package callctx carries the caller's HTTP request details to resolvers and
// collects response headers destined for the caller.
package callctx

import (
	"context"
	"net/http"
	"sync"

	"github.com/hanpama/fetchgraph/internal/headers"
)

// Caller describes the inbound request that triggered an execution.
type Caller struct {
	Header      http.Header
	Body        []byte
	ContentType string

	mu       sync.Mutex
	response http.Header
}

// New captures the header and content type of r together with its
// already read body.
func New(r *http.Request, body []byte) *Caller {
	return &Caller{
		Header:      r.Header.Clone(),
		Body:        body,
		ContentType: r.Header.Get("Content-Type"),
		response:    http.Header{},
	}
}

type ctxKey struct{}

// With attaches c to ctx.
func With(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// From returns the Caller stored in ctx, or nil.
func From(ctx context.Context) *Caller {
	c, _ := ctx.Value(ctxKey{}).(*Caller)
	return c
}

// InboundHeader returns the caller headers; nil-safe.
func (c *Caller) InboundHeader() http.Header {
	if c == nil {
		return nil
	}
	return c.Header
}

// Propagate copies the allow-listed headers of a downstream response into
// the caller response. Safe for concurrent use.
func (c *Caller) Propagate(src http.Header, allow []string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.response == nil {
		c.response = http.Header{}
	}
	headers.Propagate(c.response, src, allow)
}

// ResponseHeader returns a snapshot of the collected response headers.
func (c *Caller) ResponseHeader() http.Header {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.response.Clone()
}
