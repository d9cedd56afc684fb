// Package server serves the GraphQL endpoint over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	callctx "github.com/hanpama/fetchgraph/internal/callctx"
	eventbus "github.com/hanpama/fetchgraph/internal/eventbus"
	events "github.com/hanpama/fetchgraph/internal/events"
	executor "github.com/hanpama/fetchgraph/internal/executor"
	language "github.com/hanpama/fetchgraph/internal/language"
	reqid "github.com/hanpama/fetchgraph/internal/reqid"
	schema "github.com/hanpama/fetchgraph/internal/schema"
)

// Handler serves GraphQL over HTTP. Each request runs with a caller context
// carrying its headers and raw body; headers that resolvers collect from
// downstream responses are copied onto the HTTP response.
type Handler struct {
	exec *executor.Executor
	opt  Options
	cors corsPolicy
}

type Options struct {
	// Timeout applies when the incoming context has no deadline. 0 disables it.
	Timeout time.Duration
	// Pretty indents JSON responses.
	Pretty bool
	// MaxBodyBytes limits the request body. 0 means unlimited.
	MaxBodyBytes int64
	// CORS is disabled when AllowedOrigins is empty.
	CORS   CORSOptions
	Logger *zap.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithLogger(l *zap.Logger) Option    { return func(o *Options) { o.Logger = l } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}

// New creates a handler executing requests against sch with runtime.
func New(runtime executor.Runtime, sch *schema.Schema, opts ...Option) (*Handler, error) {
	o := Options{Timeout: 30 * time.Second, MaxBodyBytes: 8 << 20}
	for _, f := range opts {
		f(&o)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return &Handler{
		exec: executor.NewExecutor(runtime, sch),
		opt:  o,
		cors: newCORSPolicy(o.CORS),
	}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}
	ctx, rid := reqid.FromRequest(r.WithContext(ctx))

	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.RequestReceived{Request: r, RequestID: rid})
	defer func() {
		eventbus.Publish(ctx, events.RequestServed{Request: r, RequestID: rid, Status: status, Duration: time.Since(start)})
	}()

	h.cors.apply(w, r)
	switch r.Method {
	case http.MethodOptions:
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	case http.MethodGet, http.MethodPost:
	default:
		status = http.StatusMethodNotAllowed
		h.write(w, status, failure("method not allowed"))
		return
	}

	parsed, rerr := parseRequest(r, h.opt.MaxBodyBytes)
	if rerr != nil {
		status = rerr.status
		h.write(w, status, failure(rerr.message))
		return
	}

	caller := callctx.New(r, parsed.body)
	ctx = callctx.With(ctx, caller)

	var out any
	if parsed.batch != nil {
		results := make([]response, len(parsed.batch))
		for i, req := range parsed.batch {
			results[i] = h.execute(ctx, req)
		}
		out = results
	} else {
		out = h.execute(ctx, parsed.single)
	}

	for k, vs := range caller.ResponseHeader() {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	if w.Header().Get(reqid.Header) == "" {
		w.Header().Set(reqid.Header, rid)
	}
	h.write(w, status, out)
}

func (h *Handler) execute(ctx context.Context, req GraphQLRequest) response {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		var gqlErr *language.Error
		if errors.As(err, &gqlErr) {
			return failure(gqlErr.Message)
		}
		return failure(err.Error())
	}
	opType := operationType(doc, req.OperationName)

	start := time.Now()
	eventbus.Publish(ctx, events.OperationStart{Query: req.Query, OperationName: req.OperationName, OperationType: opType})
	result := h.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, nil)
	eventbus.Publish(ctx, events.OperationFinish{
		OperationName: req.OperationName,
		OperationType: opType,
		Errors:        len(result.Errors),
		Duration:      time.Since(start),
	})

	if len(result.Errors) > 0 {
		rid, _ := reqid.FromContext(ctx)
		h.opt.Logger.Debug("operation finished with errors",
			zap.String("request_id", rid),
			zap.String("operation", req.OperationName),
			zap.Int("errors", len(result.Errors)),
			zap.String("first", result.Errors[0].Message),
		)
	}
	return format(result)
}

// operationType names the kind of the operation that will run, or "" when
// the document does not select exactly one.
func operationType(doc *language.QueryDocument, name string) string {
	op := doc.Operations.ForName(name)
	if op == nil && name == "" && len(doc.Operations) == 1 {
		op = doc.Operations[0]
	}
	if op == nil {
		return ""
	}
	return string(op.Operation)
}
