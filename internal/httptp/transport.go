// Package httptp performs downstream calls over net/http.
package httptp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	eventbus "github.com/hanpama/fetchgraph/internal/eventbus"
	events "github.com/hanpama/fetchgraph/internal/events"
	"github.com/hanpama/fetchgraph/internal/fetchrt"
)

// ErrBodyTooLarge is returned when a response exceeds MaxBodyBytes.
var ErrBodyTooLarge = errors.New("httptp: response body too large")

// Transport is an HTTP transport with deadline defaults and call events.
// Connection reuse is left to the underlying http.Client.
type Transport struct {
	opts   *Options
	client *http.Client
	closed atomic.Bool
}

var calls atomic.Uint64

func New(opts ...Option) *Transport {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	client := o.Client
	if client == nil {
		client = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}
	return &Transport{opts: o, client: client}
}

// Ensure we satisfy fetchrt.Transport
var _ fetchrt.Transport = (*Transport)(nil)

func (t *Transport) Do(ctx context.Context, req *fetchrt.Request) (resp *fetchrt.Response, err error) {
	if t.closed.Load() {
		return nil, fmt.Errorf("httptp: closed")
	}
	if _, ok := ctx.Deadline(); !ok && t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	hreq.Header = req.Header.Clone()
	if hreq.Header == nil {
		hreq.Header = http.Header{}
	}
	if hreq.Header.Get("User-Agent") == "" && t.opts.UserAgent != "" {
		hreq.Header.Set("User-Agent", t.opts.UserAgent)
	}

	call := calls.Add(1)
	start := time.Now()
	eventbus.Publish(ctx, events.DownstreamStart{
		Call:      call,
		Directive: req.Directive,
		Field:     req.Field,
		Method:    req.Method,
		URL:       req.URL,
	})
	defer func() {
		finish := events.DownstreamFinish{
			Call:      call,
			Directive: req.Directive,
			Field:     req.Field,
			Method:    req.Method,
			URL:       req.URL,
			Err:       err,
			Duration:  time.Since(start),
		}
		if resp != nil {
			finish.Status = resp.Status
		}
		eventbus.Publish(ctx, finish)
		t.opts.Logger.Debug("downstream call",
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.Int("status", finish.Status),
			zap.Duration("duration", finish.Duration),
			zap.Error(err),
		)
	}()

	hresp, err := t.client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer hresp.Body.Close()

	data, err := t.readBody(hresp.Body)
	if err != nil {
		return nil, err
	}
	return &fetchrt.Response{Status: hresp.StatusCode, Header: hresp.Header, Body: data}, nil
}

func (t *Transport) readBody(r io.Reader) ([]byte, error) {
	if t.opts.MaxBodyBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, t.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > t.opts.MaxBodyBytes {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

// Close releases idle connections. Further calls fail.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.client.CloseIdleConnections()
	return nil
}
