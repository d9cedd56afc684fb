package executor

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blogSDL = `
type Query {
  users: [User]
  viewer: User
  count(n: Int = 3): Int
}
type Mutation {
  first: Step
  second: Step
}
type Step {
  label: String
  next: Step
}
type User {
  name: String
  posts: [Post]
}
type Post {
  title: String
  author: User
}
`

func blogRuntime() *MockRuntime {
	return NewMockRuntime(map[string]MockResolver{
		"Query.users":  NewMockValueResolver([]any{obj("name", "a"), obj("name", "b")}),
		"Query.viewer": NewMockValueResolver(obj("name", "me")),
		"User.posts":   NewMockValueResolver([]any{obj("title", "t1"), obj("title", "t2")}),
		"Post.author":  NewMockValueResolver(obj("name", "x")),
	})
}

func TestExecute_SyncDescentNeedsNoBatch(t *testing.T) {
	rt := blogRuntime()
	res := run(t, rt, newSchema(t, blogSDL), `{ viewer { name posts { title } } }`, nil)

	require.Empty(t, res.Errors)
	want := map[string]any{"viewer": obj(
		"name", "me",
		"posts", []any{obj("title", "t1"), obj("title", "t2")},
	)}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, rt.Batches())
}

func TestExecute_OneBatchPerAsyncDepth(t *testing.T) {
	rt := blogRuntime()
	sch := newSchema(t, blogSDL, "Query.users", "User.posts", "Post.author")
	res := run(t, rt, sch, `{ users { name posts { title author { name } } } }`, nil)

	require.Empty(t, res.Errors)
	assert.Equal(t, 3, rt.Batches())

	perBatch := map[int][]string{}
	for _, c := range rt.Calls() {
		if c.Async() {
			perBatch[c.Batch] = append(perBatch[c.Batch], c.ObjectType+"."+c.Field)
		}
	}
	assert.Equal(t, []string{"Query.users"}, perBatch[1])
	assert.Equal(t, []string{"User.posts", "User.posts"}, perBatch[2])
	assert.Len(t, perBatch[3], 4)

	users := res.Data.(map[string]any)["users"].([]any)
	require.Len(t, users, 2)
	post := users[1].(map[string]any)["posts"].([]any)[0]
	assert.Equal(t, obj("title", "t1", "author", obj("name", "x")), post)
}

func TestExecute_SyncFieldsResolveBeforeTheBatch(t *testing.T) {
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.viewer": NewMockValueResolver(obj("name", "v")),
	})
	sch := newSchema(t, blogSDL, "Query.users")
	res := run(t, rt, sch, `{ count users { name } viewer { name } }`, nil)

	require.Empty(t, res.Errors)
	assert.Equal(t, []string{"Query.count", "Query.viewer", "User.name", "Query.users"}, rt.Fields())
}

func TestExecute_MutationRootsRunSerially(t *testing.T) {
	rt := NewMockRuntime(map[string]MockResolver{
		"Mutation.first":  NewMockValueResolver(obj("label", "1")),
		"Mutation.second": NewMockValueResolver(obj("label", "2")),
		"Step.next":       NewMockValueResolver(obj("label", "n")),
	})
	sch := newSchema(t, blogSDL, "Mutation.first", "Mutation.second", "Step.next")
	res := run(t, rt, sch, `mutation { first { label next { label } } second { next { label } } }`, nil)

	require.Empty(t, res.Errors)
	assert.Equal(t, []string{"Mutation.first", "Step.next", "Mutation.second", "Step.next"}, asyncFields(rt))
	assert.Equal(t, 4, rt.Batches())
	assert.Equal(t, map[string]any{
		"first":  obj("label", "1", "next", obj("label", "n")),
		"second": obj("next", obj("label", "n")),
	}, res.Data)
}

func TestExecute_SelectsOperation(t *testing.T) {
	const doc = `query A { viewer { name } } query B { count }`
	sch := newSchema(t, blogSDL)

	tests := []struct {
		name    string
		op      string
		want    any
		wantErr string
	}{
		{name: "named", op: "B", want: map[string]any{"count": nil}},
		{name: "unknown", op: "C", wantErr: `unknown operation "C"`},
		{name: "ambiguous", op: "", wantErr: "operation name is required when the document has several operations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := NewExecutor(NewMockRuntime(nil), sch)
			res := exec.ExecuteRequest(context.Background(), mustParseQuery(t, doc), tt.op, nil, nil)
			if tt.wantErr != "" {
				require.Len(t, res.Errors, 1)
				assert.Equal(t, tt.wantErr, res.Errors[0].Message)
				assert.Nil(t, res.Data)
				return
			}
			require.Empty(t, res.Errors)
			assert.Equal(t, tt.want, res.Data)
		})
	}
}

func TestExecute_MissingMutationType(t *testing.T) {
	sch := newSchema(t, `type Query { a: String }`)
	res := run(t, NewMockRuntime(nil), sch, `mutation { a }`, nil)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "schema has no mutation root type", res.Errors[0].Message)
}

func TestExecute_UnknownFieldIsLocated(t *testing.T) {
	res := run(t, NewMockRuntime(nil), newSchema(t, blogSDL), `{ nope viewer { __typename } }`, nil)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, GraphQLError{Message: "Cannot query field 'nope' on type 'Query'", Path: Path{"nope"}}, res.Errors[0])
	assert.Equal(t, map[string]any{"viewer": nil}, res.Data)
}

func TestExecute_Typename(t *testing.T) {
	rt := NewMockRuntime(map[string]MockResolver{"Query.viewer": NewMockValueResolver(obj())})
	res := run(t, rt, newSchema(t, blogSDL), `{ __typename viewer { kind: __typename } }`, nil)
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{"__typename": "Query", "viewer": obj("kind", "User")}, res.Data)
}

type ctxKey struct{}

func TestExecute_PassesContextToRuntime(t *testing.T) {
	var seen []any
	grab := func(ctx context.Context, source any, args map[string]any) (any, error) {
		seen = append(seen, ctx.Value(ctxKey{}))
		return obj("name", "n"), nil
	}
	rt := NewMockRuntime(map[string]MockResolver{"Query.viewer": grab, "Post.author": grab})
	rt.SetResolver("User", "posts", NewMockValueResolver([]any{obj()}))
	sch := newSchema(t, blogSDL, "Post.author")

	ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")
	res := NewExecutor(rt, sch).ExecuteRequest(ctx, mustParseQuery(t, `{ viewer { posts { author { name } } } }`), "", nil, nil)

	require.Empty(t, res.Errors)
	assert.Equal(t, []any{"req-1", "req-1"}, seen)
}

func TestExecute_InitialValueIsRootSource(t *testing.T) {
	rt := NewMockRuntime(nil)
	sch := newSchema(t, blogSDL, "Query.viewer")
	root := obj("viewer", obj("name", "root"))
	res := NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, `{ viewer { name } }`), "", nil, root)

	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{"viewer": obj("name", "root")}, res.Data)
	assert.Equal(t, root, rt.Calls()[0].Source)
}

func TestExecute_ShortBatchResultIsAnError(t *testing.T) {
	rt := &shortRuntime{MockRuntime: NewMockRuntime(nil)}
	sch := newSchema(t, blogSDL, "Query.viewer", "Query.users")
	res := run(t, rt, sch, `{ viewer { name } users { name } }`, nil)

	require.Len(t, res.Errors, 2)
	assert.Equal(t, "runtime returned 0 results for 2 tasks", res.Errors[0].Message)
	assert.Equal(t, map[string]any{"viewer": nil, "users": nil}, res.Data)
}

type shortRuntime struct{ *MockRuntime }

func (shortRuntime) BatchResolveAsync(context.Context, []AsyncResolveTask) []AsyncResolveResult {
	return nil
}

func TestPathString(t *testing.T) {
	assert.Equal(t, "user.posts[0].title", Path{"user", "posts", 0, "title"}.String())
	assert.Equal(t, "", Path(nil).String())
}
