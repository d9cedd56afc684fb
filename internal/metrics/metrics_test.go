package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventbus "github.com/hanpama/fetchgraph/internal/eventbus"
	events "github.com/hanpama/fetchgraph/internal/events"
)

func TestCollectorCountsEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	c := New()
	unregister := c.Register()
	ctx := context.Background()

	eventbus.Publish(ctx, events.DownstreamFinish{Directive: "rise", Field: "Query.user", Status: 200, Duration: time.Millisecond})
	eventbus.Publish(ctx, events.DownstreamFinish{Directive: "rise", Field: "Query.user", Status: 204})
	eventbus.Publish(ctx, events.DownstreamFinish{Directive: "rise", Field: "Query.user", Err: errors.New("dial")})
	eventbus.Publish(ctx, events.OperationFinish{OperationType: "query", Errors: 2})
	eventbus.Publish(ctx, events.RequestServed{Request: httptest.NewRequest("POST", "/graphql", nil), Status: 200})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.downstreamCalls.WithLabelValues("rise", "Query.user", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.downstreamCalls.WithLabelValues("rise", "Query.user", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("query", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("POST", "200")))

	unregister()
	eventbus.Publish(ctx, events.OperationFinish{OperationType: "query"})
	assert.Equal(t, 0.0, testutil.ToFloat64(c.operations.WithLabelValues("query", "ok")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.downstreamCalls.WithLabelValues("rise", "Query.user", "5xx").Inc()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `fetchgraph_downstream_requests_total{directive="rise",field="Query.user",status="5xx"} 1`)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "4xx", statusClass(404, nil))
	assert.Equal(t, "error", statusClass(0, errors.New("x")))
	assert.Equal(t, "unknown", statusClass(0, nil))
}
