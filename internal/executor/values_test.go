package executor

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	language "github.com/hanpama/fetchgraph/internal/language"
	schema "github.com/hanpama/fetchgraph/internal/schema"
)

const inputSDL = `
enum Role { ADMIN MEMBER }
input Filter {
  name: String!
  limit: Int = 10
  roles: [Role!]
  nested: Range
}
input Range { from: Int, to: Int }
input Pick @oneOf { id: ID, email: String }
type Query {
  search(filter: Filter!): [String]
  pick(by: Pick!): String
  role(r: Role): Role
  ids(list: [ID]): [ID]
}
`

func TestCoerceInput(t *testing.T) {
	sch := newSchema(t, inputSDL)
	named := schema.NamedType
	nonNull := schema.NonNullType
	list := schema.ListType

	tests := []struct {
		name    string
		typ     *schema.TypeRef
		in      any
		want    any
		wantErr string
	}{
		{name: "int from int", typ: named("Int"), in: 4, want: 4},
		{name: "int from integral float", typ: named("Int"), in: float64(4), want: 4},
		{name: "int from json number", typ: named("Int"), in: json.Number("12"), want: 12},
		{name: "int rejects fraction", typ: named("Int"), in: 1.5, wantErr: "non-integer"},
		{name: "int rejects string", typ: named("Int"), in: "42", wantErr: "cannot coerce"},
		{name: "int range", typ: named("Int"), in: int64(math.MaxInt32) + 1, wantErr: "32-bit range"},
		{name: "float from int", typ: named("Float"), in: 2, want: float64(2)},
		{name: "float from json number", typ: named("Float"), in: json.Number("2.5"), want: 2.5},
		{name: "id from int", typ: named("ID"), in: 7, want: "7"},
		{name: "id from float", typ: named("ID"), in: float64(8), want: "8"},
		{name: "id rejects bool", typ: named("ID"), in: true, wantErr: "to ID"},
		{name: "string strict", typ: named("String"), in: 1, wantErr: "to String"},
		{name: "boolean strict", typ: named("Boolean"), in: "true", wantErr: "to Boolean"},
		{name: "custom scalar kept", typ: named("JSONish"), in: map[string]any{"a": 1}, want: map[string]any{"a": 1}},
		{name: "null for nullable", typ: named("Int"), in: nil, want: nil},
		{name: "null for non-null", typ: nonNull(named("Int")), in: nil, wantErr: "non-null type Int!"},
		{name: "single item becomes list", typ: list(named("ID")), in: 3, want: []any{"3"}},
		{name: "list item error has index", typ: list(named("Int")), in: []any{1, "x"}, wantErr: "[1]: cannot coerce"},
		{name: "enum member", typ: named("Role"), in: "ADMIN", want: "ADMIN"},
		{name: "enum unknown", typ: named("Role"), in: "OWNER", wantErr: `value "OWNER" does not exist in enum Role`},
		{
			name: "input object defaults",
			typ:  named("Filter"),
			in:   map[string]any{"name": "a", "roles": []any{"MEMBER"}, "nested": map[string]any{"from": float64(1)}},
			want: map[string]any{"name": "a", "limit": int64(10), "roles": []any{"MEMBER"}, "nested": map[string]any{"from": 1}},
		},
		{name: "input object required", typ: named("Filter"), in: map[string]any{"limit": 1}, wantErr: "required field 'name' of Filter"},
		{name: "input object unknown field", typ: named("Filter"), in: map[string]any{"name": "a", "size": 1}, wantErr: "unknown field 'size' on Filter"},
		{name: "input object nested error", typ: named("Filter"), in: map[string]any{"name": "a", "roles": []any{"X"}}, wantErr: "field 'roles': [0]"},
		{name: "input object shape", typ: named("Filter"), in: "a", wantErr: "to Filter"},
		{name: "one of", typ: named("Pick"), in: map[string]any{"id": "1"}, want: map[string]any{"id": "1"}},
		{name: "one of many", typ: named("Pick"), in: map[string]any{"id": "1", "email": "e"}, wantErr: "exactly one field of Pick"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerceInput(sch, tt.in, tt.typ)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("coerced value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCoerceVariableValues(t *testing.T) {
	sch := newSchema(t, inputSDL)
	op := func(t *testing.T, q string) *language.OperationDefinition {
		t.Helper()
		return mustParseQuery(t, q).Operations[0]
	}

	t.Run("required variable missing", func(t *testing.T) {
		_, err := coerceVariableValues(sch, op(t, `query ($f: Filter!) { search(filter: $f) }`), nil)
		require.EqualError(t, err, "variable $f of required type Filter! was not provided")
	})
	t.Run("null for non-null", func(t *testing.T) {
		_, err := coerceVariableValues(sch, op(t, `query ($f: Filter!) { search(filter: $f) }`), map[string]any{"f": nil})
		require.EqualError(t, err, "variable $f of type Filter! cannot be null")
	})
	t.Run("input object validated", func(t *testing.T) {
		_, err := coerceVariableValues(sch, op(t, `query ($f: Filter!) { search(filter: $f) }`), map[string]any{"f": map[string]any{"limit": 1}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "required field 'name'")
	})
	t.Run("defaults and omissions", func(t *testing.T) {
		got, err := coerceVariableValues(sch, op(t, `query ($r: Role = ADMIN, $l: [ID]) { role(r: $r) ids(list: $l) }`), nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"r": "ADMIN"}, got)
	})
}

func TestArgumentCoercion(t *testing.T) {
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.role": echoArg("r"),
		"Query.ids":  echoArg("list"),
		"Query.pick": func(_ context.Context, _ any, args map[string]any) (any, error) {
			return args["by"].(map[string]any)["email"], nil
		},
	})
	sch := newSchema(t, inputSDL)

	t.Run("literals and variables", func(t *testing.T) {
		res := run(t, rt, sch, `query ($e: String) { role(r: MEMBER) ids(list: [1, "b"]) pick(by: {email: $e}) }`,
			map[string]any{"e": "x@y"})
		require.Empty(t, res.Errors)
		assert.Equal(t, map[string]any{"role": "MEMBER", "ids": []any{"1", "b"}, "pick": "x@y"}, res.Data)
	})

	t.Run("invalid argument skips the resolver", func(t *testing.T) {
		rt.Reset()
		res := run(t, rt, sch, `{ role(r: OWNER) }`, nil)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, `argument 'r': value "OWNER" does not exist in enum Role`, res.Errors[0].Message)
		assert.Equal(t, Path{"role"}, res.Errors[0].Path)
		assert.Equal(t, map[string]any{"role": nil}, res.Data)
		assert.Empty(t, rt.Calls())
	})

	t.Run("missing required argument", func(t *testing.T) {
		res := run(t, rt, sch, `{ pick }`, nil)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "argument 'by' of required type Pick! was not provided", res.Errors[0].Message)
	})

	t.Run("unset variable falls back to absence", func(t *testing.T) {
		res := run(t, rt, sch, `query ($r: Role) { role(r: $r) }`, nil)
		require.Empty(t, res.Errors)
		assert.Equal(t, map[string]any{"role": nil}, res.Data)
	})
}
