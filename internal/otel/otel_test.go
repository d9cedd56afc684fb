package otel

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	eventbus "github.com/hanpama/fetchgraph/internal/eventbus"
	events "github.com/hanpama/fetchgraph/internal/events"
	reqid "github.com/hanpama/fetchgraph/internal/reqid"
)

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup("", "svc")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSpansFollowEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer Register(tp.Tracer("test"))()

	r := httptest.NewRequest("POST", "/graphql", nil)
	ctx, rid := reqid.NewContext(context.Background())

	eventbus.Publish(ctx, events.RequestReceived{Request: r, RequestID: rid})
	eventbus.Publish(ctx, events.OperationStart{OperationName: "Q", OperationType: "query"})
	eventbus.Publish(ctx, events.DownstreamStart{Call: 1, Field: "Query.a", Method: "GET", URL: "http://a"})
	eventbus.Publish(ctx, events.DownstreamStart{Call: 2, Field: "Query.b", Method: "GET", URL: "http://b"})
	eventbus.Publish(ctx, events.DownstreamFinish{Call: 2, Status: 200})
	eventbus.Publish(ctx, events.DownstreamFinish{Call: 1, Err: errors.New("boom")})
	eventbus.Publish(ctx, events.OperationFinish{OperationName: "Q", OperationType: "query", Errors: 1})
	eventbus.Publish(ctx, events.RequestServed{Request: r, RequestID: rid, Status: 200})

	spans := rec.Ended()
	require.Len(t, spans, 4)
	names := []string{spans[0].Name(), spans[1].Name(), spans[2].Name(), spans[3].Name()}
	assert.Equal(t, []string{"downstream Query.b", "downstream Query.a", "graphql.operation", "http.request"}, names)

	op := spans[2]
	assert.Equal(t, op.SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, op.SpanContext().SpanID(), spans[1].Parent().SpanID())
	assert.Equal(t, spans[3].SpanContext().SpanID(), op.Parent().SpanID())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}
