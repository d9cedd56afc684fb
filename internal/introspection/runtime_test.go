package introspection

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	executor "github.com/hanpama/fetchgraph/internal/executor"
	language "github.com/hanpama/fetchgraph/internal/language"
	schema "github.com/hanpama/fetchgraph/internal/schema"
)

const testSDL = `
"Something with a name."
interface Named { name: String! }
type User implements Named {
  name: String!
  tags: [String!]
  nick: String @deprecated(reason: "use name")
}
type Team implements Named { name: String! }
union Owner = User | Team
enum Role { ADMIN MEMBER @deprecated }
input Filter {
  q: String = "a b"
  limit: Int = 10
  role: Role = ADMIN
  roles: [Role] = [MEMBER]
}
type Query {
  hello: String
  users(filter: Filter): [User]
  owner: Owner
}
type Mutation { touch: Boolean }
`

func execute(t *testing.T, query string) (*executor.ExecutionResult, *executor.MockRuntime) {
	t.Helper()
	sch, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	base := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.hello": executor.NewMockValueResolver("world"),
	})
	rt, ext := Wrap(base, sch)
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	return executor.NewExecutor(rt, ext).ExecuteRequest(context.Background(), doc, "", nil, nil), base
}

func data(t *testing.T, res *executor.ExecutionResult) map[string]any {
	t.Helper()
	require.Empty(t, res.Errors)
	m, ok := res.Data.(map[string]any)
	require.True(t, ok, "data is %T", res.Data)
	return m
}

func TestSchemaRoots(t *testing.T) {
	res, _ := execute(t, `{ __schema { queryType { name } mutationType { name } subscriptionType { name } } }`)
	assert.Equal(t, map[string]any{
		"queryType":        map[string]any{"name": "Query"},
		"mutationType":     map[string]any{"name": "Mutation"},
		"subscriptionType": nil,
	}, data(t, res)["__schema"])
}

func TestSchemaTypesAreSortedAndIncludeMetaTypes(t *testing.T) {
	res, _ := execute(t, `{ __schema { types { name } } }`)
	var names []string
	for _, typ := range data(t, res)["__schema"].(map[string]any)["types"].([]any) {
		names = append(names, typ.(map[string]any)["name"].(string))
	}
	assert.Contains(t, names, "User")
	assert.Contains(t, names, "String")
	assert.Contains(t, names, "__Schema")
	assert.Contains(t, names, "__TypeKind")
	assert.IsIncreasing(t, names)
}

func TestTypeFields(t *testing.T) {
	res, _ := execute(t, `{
  __type(name: "User") {
    kind name
    interfaces { name }
    fields { name type { kind name ofType { kind name ofType { kind name } } } }
    all: fields(includeDeprecated: true) { name isDeprecated deprecationReason }
  }
}`)
	want := map[string]any{
		"kind":       "OBJECT",
		"name":       "User",
		"interfaces": []any{map[string]any{"name": "Named"}},
		"fields": []any{
			map[string]any{"name": "name", "type": map[string]any{
				"kind": "NON_NULL", "name": nil,
				"ofType": map[string]any{"kind": "SCALAR", "name": "String", "ofType": nil},
			}},
			map[string]any{"name": "tags", "type": map[string]any{
				"kind": "LIST", "name": nil,
				"ofType": map[string]any{"kind": "NON_NULL", "name": nil, "ofType": map[string]any{"kind": "SCALAR", "name": "String"}},
			}},
		},
		"all": []any{
			map[string]any{"name": "name", "isDeprecated": false, "deprecationReason": nil},
			map[string]any{"name": "tags", "isDeprecated": false, "deprecationReason": nil},
			map[string]any{"name": "nick", "isDeprecated": true, "deprecationReason": "use name"},
		},
	}
	if diff := cmp.Diff(want, data(t, res)["__type"]); diff != "" {
		t.Fatalf("__type mismatch (-want +got):\n%s", diff)
	}
}

func TestAbstractAndEnumTypes(t *testing.T) {
	res, _ := execute(t, `{
  named: __type(name: "Named") { kind description possibleTypes { name } }
  owner: __type(name: "Owner") { kind possibleTypes { name } fields { name } }
  role: __type(name: "Role") { enumValues { name } all: enumValues(includeDeprecated: true) { name } }
}`)
	got := data(t, res)
	assert.Equal(t, map[string]any{
		"kind":          "INTERFACE",
		"description":   "Something with a name.",
		"possibleTypes": []any{map[string]any{"name": "Team"}, map[string]any{"name": "User"}},
	}, got["named"])
	assert.Equal(t, map[string]any{
		"kind":          "UNION",
		"possibleTypes": []any{map[string]any{"name": "Team"}, map[string]any{"name": "User"}},
		"fields":        nil,
	}, got["owner"])
	assert.Equal(t, map[string]any{
		"enumValues": []any{map[string]any{"name": "ADMIN"}},
		"all":        []any{map[string]any{"name": "ADMIN"}, map[string]any{"name": "MEMBER"}},
	}, got["role"])
}

func TestInputDefaultsArePrintedAsLiterals(t *testing.T) {
	res, _ := execute(t, `{ __type(name: "Filter") { kind inputFields { name defaultValue } } }`)
	assert.Equal(t, map[string]any{
		"kind": "INPUT_OBJECT",
		"inputFields": []any{
			map[string]any{"name": "q", "defaultValue": `"a b"`},
			map[string]any{"name": "limit", "defaultValue": "10"},
			map[string]any{"name": "role", "defaultValue": "ADMIN"},
			map[string]any{"name": "roles", "defaultValue": "[MEMBER]"},
		},
	}, data(t, res)["__type"])
}

func TestQueryRootHidesMetaFields(t *testing.T) {
	res, _ := execute(t, `{ __type(name: "Query") { fields { name } } }`)
	assert.Equal(t, map[string]any{"fields": []any{
		map[string]any{"name": "hello"},
		map[string]any{"name": "users"},
		map[string]any{"name": "owner"},
	}}, data(t, res)["__type"])
}

func TestUnknownTypeIsNull(t *testing.T) {
	res, _ := execute(t, `{ __type(name: "Nope") { name } }`)
	assert.Equal(t, map[string]any{"__type": nil}, data(t, res))
}

func TestOtherFieldsAreDelegated(t *testing.T) {
	res, base := execute(t, `{ hello __schema { queryType { name } } }`)
	got := data(t, res)
	assert.Equal(t, "world", got["hello"])
	assert.Equal(t, []string{"Query.hello"}, base.Fields())
}

func TestWrapLeavesSchemaUntouched(t *testing.T) {
	sch, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	_, ext := Wrap(executor.NewMockRuntime(nil), sch)

	assert.Nil(t, sch.GetQueryType().Field("__schema"))
	assert.Nil(t, sch.Types["__Type"])
	assert.NotNil(t, ext.GetQueryType().Field("__schema"))
	assert.NotNil(t, ext.Types["__Type"])
	assert.Same(t, sch.Types["User"], ext.Types["User"])
}
