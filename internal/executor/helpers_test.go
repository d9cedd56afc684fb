package executor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/hanpama/fetchgraph/internal/language"
	schema "github.com/hanpama/fetchgraph/internal/schema"
)

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	doc, err := language.ParseQuery(q)
	require.NoError(t, err)
	return doc
}

// newSchema builds sdl and marks the given "Type.field" coordinates async.
func newSchema(t *testing.T, sdl string, async ...string) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(sdl)
	require.NoError(t, err)
	for _, coord := range async {
		typ, name, _ := strings.Cut(coord, ".")
		require.Contains(t, sch.Types, typ, coord)
		f := sch.Types[typ].Field(name)
		require.NotNil(t, f, coord)
		f.SetAsync(true)
	}
	return sch
}

func run(t *testing.T, rt Runtime, sch *schema.Schema, query string, vars map[string]any) *ExecutionResult {
	t.Helper()
	return NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, query), "", vars, nil)
}

func projectField(name string) MockResolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		if m, ok := source.(map[string]any); ok {
			return m[name], nil
		}
		return nil, nil
	}
}

func obj(kv ...any) map[string]any {
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}

// asyncFields lists the coordinates resolved through batches, in order.
func asyncFields(rt *MockRuntime) []string {
	var out []string
	for _, c := range rt.Calls() {
		if c.Async() {
			out = append(out, c.ObjectType+"."+c.Field)
		}
	}
	return out
}

// echoArg resolves to the argument called name.
func echoArg(name string) MockResolver {
	return func(_ context.Context, _ any, args map[string]any) (any, error) {
		return args[name], nil
	}
}
