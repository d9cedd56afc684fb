package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	callctx "github.com/hanpama/fetchgraph/internal/callctx"
	eventbus "github.com/hanpama/fetchgraph/internal/eventbus"
	events "github.com/hanpama/fetchgraph/internal/events"
	executor "github.com/hanpama/fetchgraph/internal/executor"
	fetchrt "github.com/hanpama/fetchgraph/internal/fetchrt"
	language "github.com/hanpama/fetchgraph/internal/language"
	reqid "github.com/hanpama/fetchgraph/internal/reqid"
	schema "github.com/hanpama/fetchgraph/internal/schema"
)

func newTestHandler(t *testing.T, rt executor.Runtime, opts ...Option) *Handler {
	t.Helper()
	sch, err := schema.BuildFromSDL(`type Query { hello: String }`)
	require.NoError(t, err)
	h, err := New(rt, sch, opts...)
	require.NoError(t, err)
	return h
}

func newFetchHandler(t *testing.T, mock *fetchrt.MockTransport) *Handler {
	t.Helper()
	f := fetchrt.New(
		fetchrt.WithBaseURL("http://api.test"),
		fetchrt.WithForwardHeaders("Authorization"),
		fetchrt.WithTransport(mock),
	)
	sdl := `
type User { id: ID! name: String }
type Query {
  me: User @rise(path: "/me")
}
type Mutation {
  note(id: ID!): String @rise(path: "/notes/$id", method: "POST", resultroot: "text")
}
`
	base, err := schema.BuildFromSDL(fetchrt.CommonTypeDefs + f.TypeDefs() + sdl)
	require.NoError(t, err)
	sch, err := f.Transform(base)
	require.NoError(t, err)
	h, err := New(fetchrt.NewRuntime(sch), sch)
	require.NoError(t, err)
	return h
}

func serve(h http.Handler, r *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func postJSON(body string) *http.Request {
	req := httptest.NewRequest("POST", "/graphql", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCallerHeadersReachResolvers(t *testing.T) {
	rt := executor.NewMockRuntime(nil)
	var captured http.Header
	rt.SetResolver("Query", "hello", func(ctx context.Context, src any, args map[string]any) (any, error) {
		captured = callctx.From(ctx).InboundHeader()
		return "world", nil
	})
	h := newTestHandler(t, rt)

	req := postJSON(`{"query":"{ hello }"}`)
	req.Header.Set("X-Test", "abc")
	w, body := serve(h, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"hello": "world"}, body["data"])
	assert.Equal(t, "abc", captured.Get("X-Test"))
}

func TestCORSAndPreflight(t *testing.T) {
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.hello": executor.NewMockValueResolver("world"),
	})
	h := newTestHandler(t, rt, WithCORS("*"))

	req := postJSON(`{"query":"{ hello }"}`)
	req.Header.Set("Origin", "http://example.com")
	w, _ := serve(h, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	pre := httptest.NewRequest("OPTIONS", "/graphql", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw, _ := serve(h, pre)
	assert.Equal(t, http.StatusNoContent, pw.Code)
	assert.Equal(t, "*", pw.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Test", pw.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSSpecificOrigin(t *testing.T) {
	h := newTestHandler(t, executor.NewMockRuntime(nil), WithCORS("http://a.test"))

	req := postJSON(`{"query":"{ hello }"}`)
	req.Header.Set("Origin", "http://a.test")
	w, _ := serve(h, req)
	assert.Equal(t, "http://a.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))

	other := postJSON(`{"query":"{ hello }"}`)
	other.Header.Set("Origin", "http://b.test")
	ow, _ := serve(h, other)
	assert.Empty(t, ow.Header().Get("Access-Control-Allow-Origin"))
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, executor.NewMockRuntime(nil), WithMaxBodyBytes(10))
	w, _ := serve(h, postJSON(`{"query":"1234567890"}`))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRejectsBadRequests(t *testing.T) {
	h := newTestHandler(t, executor.NewMockRuntime(nil))

	w, _ := serve(h, httptest.NewRequest("PUT", "/graphql", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w, _ = serve(h, postJSON(`{`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = serve(h, postJSON(`[]`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	xml := httptest.NewRequest("POST", "/graphql", bytes.NewBufferString(`<q/>`))
	xml.Header.Set("Content-Type", "application/xml")
	w, _ = serve(h, xml)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	text := httptest.NewRequest("POST", "/graphql", bytes.NewBufferString(`hi`))
	text.Header.Set("Content-Type", "text/plain")
	w, body := serve(h, text)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing 'query'", body["errors"].([]any)[0].(map[string]any)["message"])
}

func TestGetAndBatch(t *testing.T) {
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.hello": executor.NewMockValueResolver("world"),
	})
	h := newTestHandler(t, rt)

	w, body := serve(h, httptest.NewRequest("GET", "/graphql?query=%7B+hello+%7D", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"hello": "world"}, body["data"])

	bw := httptest.NewRecorder()
	h.ServeHTTP(bw, postJSON(`[{"query":"{ hello }"},{"query":"{ a: hello }"}]`))
	var batch []map[string]any
	require.NoError(t, json.Unmarshal(bw.Body.Bytes(), &batch))
	require.Len(t, batch, 2)
	assert.Equal(t, map[string]any{"a": "world"}, batch[1]["data"])
}

func TestRequestID(t *testing.T) {
	rt := executor.NewMockRuntime(nil)
	var captured string
	rt.SetResolver("Query", "hello", func(ctx context.Context, src any, args map[string]any) (any, error) {
		captured, _ = reqid.FromContext(ctx)
		return "world", nil
	})
	h := newTestHandler(t, rt)

	w, _ := serve(h, postJSON(`{"query":"{ hello }"}`))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, captured)
	assert.Equal(t, captured, w.Header().Get(reqid.Header))

	req := postJSON(`{"query":"{ hello }"}`)
	req.Header.Set(reqid.Header, "given")
	w, _ = serve(h, req)
	assert.Equal(t, "given", captured)
	assert.Equal(t, "given", w.Header().Get(reqid.Header))
}

func TestPublishesEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	var seen []string
	defer eventbus.Subscribe(func(_ context.Context, e events.RequestReceived) { seen = append(seen, "received") })()
	defer eventbus.Subscribe(func(_ context.Context, e events.OperationStart) { seen = append(seen, "start:"+e.OperationType) })()
	defer eventbus.Subscribe(func(_ context.Context, e events.OperationFinish) { seen = append(seen, "finish") })()
	defer eventbus.Subscribe(func(_ context.Context, e events.RequestServed) { seen = append(seen, "served") })()

	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.hello": executor.NewMockValueResolver("world"),
	})
	serve(newTestHandler(t, rt), postJSON(`{"query":"{ hello }"}`))
	assert.Equal(t, []string{"received", "start:query", "finish", "served"}, seen)
}

func TestDownstreamResponseHeadersArePropagated(t *testing.T) {
	resp := fetchrt.JSONResponse(`{"id":"1","name":"ann"}`)
	resp.Header.Add("Set-Cookie", "a=1")
	resp.Header.Set("X-Internal", "hidden")
	resp.Header.Set("X-Request-Id", "downstream")
	mock := fetchrt.NewMockTransport(resp)
	h := newFetchHandler(t, mock)

	req := postJSON(`{"query":"{ me { id name } }"}`)
	req.Header.Set("Authorization", "Bearer t")
	w, body := serve(h, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"me": map[string]any{"id": "1", "name": "ann"}}, body["data"])
	assert.Equal(t, []string{"a=1"}, w.Header().Values("Set-Cookie"))
	assert.Empty(t, w.Header().Get("X-Internal"))
	assert.Equal(t, "downstream", w.Header().Get("X-Request-Id"))
	assert.Equal(t, "Bearer t", mock.Calls()[0].Header.Get("Authorization"))
}

func TestTextBodyIsPassedThrough(t *testing.T) {
	mock := fetchrt.NewMockTransport(fetchrt.JSONResponse(`{"text":"saved"}`))
	h := newFetchHandler(t, mock)

	target := "/graphql?" + url.Values{"query": {`mutation { note(id: "n1") }`}}.Encode()
	req := httptest.NewRequest("POST", target, bytes.NewBufferString("raw note body"))
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	w, body := serve(h, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]any{"note": "saved"}, body["data"])
	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "http://api.test/notes/n1", calls[0].URL)
	assert.Equal(t, "raw note body", string(calls[0].Body))
	assert.Equal(t, "text/plain; charset=utf-8", calls[0].Header.Get("Content-Type"))
}

func TestUpstreamErrorExtensions(t *testing.T) {
	mock := fetchrt.NewMockTransport(&fetchrt.Response{
		Status: http.StatusNotFound,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   []byte(`{"message":"no such user"}`),
	})
	h := newFetchHandler(t, mock)

	w, body := serve(h, postJSON(`{"query":"{ me { id } }"}`))
	require.Equal(t, http.StatusOK, w.Code)
	errs := body["errors"].([]any)
	require.Len(t, errs, 1)
	e := errs[0].(map[string]any)
	assert.Equal(t, []any{"me"}, e["path"])
	ext := e["extensions"].(map[string]any)
	assert.Equal(t, float64(404), ext["status"])
	assert.Equal(t, map[string]any{"message": "no such user"}, ext["errors"])
}

func TestSyntaxErrorsAreReportedAsGraphQLErrors(t *testing.T) {
	h := newTestHandler(t, executor.NewMockRuntime(nil))
	w, body := serve(h, postJSON(`{"query":"{ hello"}`))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, body["data"])
	errs := body["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].(map[string]any)["message"], "Expected")
}

func TestOperationType(t *testing.T) {
	tests := []struct {
		query string
		name  string
		want  string
	}{
		{query: `{ hello }`, want: "query"},
		{query: `mutation M { a } query Q { b }`, name: "M", want: "mutation"},
		{query: `mutation M { a } query Q { b }`, want: ""},
		{query: `query Q { b }`, name: "X", want: ""},
	}
	for _, tt := range tests {
		doc, err := language.ParseQuery(tt.query)
		require.NoError(t, err)
		assert.Equal(t, tt.want, operationType(doc, tt.name), tt.query)
	}
}
