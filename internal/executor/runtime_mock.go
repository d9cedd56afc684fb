package executor

import (
	"context"
	"fmt"
	"sync"
)

// MockResolver resolves one field instance for MockRuntime.
type MockResolver func(ctx context.Context, source any, args map[string]any) (any, error)

// NewMockValueResolver returns a MockResolver that always yields val.
func NewMockValueResolver(val any) MockResolver {
	return func(context.Context, any, map[string]any) (any, error) { return val, nil }
}

// NewMockErrorResolver returns a MockResolver that always fails with err.
func NewMockErrorResolver(err error) MockResolver {
	return func(context.Context, any, map[string]any) (any, error) { return nil, err }
}

// Call records one field resolution. Batch is 0 for sync calls and the
// 1-based batch sequence number for async ones.
type Call struct {
	ObjectType string
	Field      string
	Source     any
	Args       map[string]any
	Inherited  map[string]any
	Batch      int
}

// Async reports whether the call came through BatchResolveAsync.
func (c Call) Async() bool { return c.Batch > 0 }

// MockRuntime is a Runtime backed by per-field resolvers keyed
// "ObjectType.field". Fields without a resolver read the key of the same
// name from a map source. Abstract values are typed by their __typename
// key.
type MockRuntime struct {
	mu        sync.Mutex
	resolvers map[string]MockResolver
	calls     []Call
	batches   int

	typeOf    func(value any) (string, error)
	serialize func(typeName string, value any) (any, error)
}

func NewMockRuntime(resolvers map[string]MockResolver) *MockRuntime {
	m := &MockRuntime{resolvers: make(map[string]MockResolver, len(resolvers))}
	for k, r := range resolvers {
		m.resolvers[k] = r
	}
	return m
}

func (m *MockRuntime) SetResolver(objectType, field string, r MockResolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvers[objectType+"."+field] = r
}

// SetTypeResolver replaces the __typename lookup used by ResolveType.
func (m *MockRuntime) SetTypeResolver(f func(value any) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typeOf = f
}

// SetSerializer replaces the identity leaf serialization.
func (m *MockRuntime) SetSerializer(f func(typeName string, value any) (any, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serialize = f
}

func (m *MockRuntime) resolve(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	m.mu.Lock()
	r := m.resolvers[objectType+"."+field]
	m.mu.Unlock()
	if r != nil {
		return r(ctx, source, args)
	}
	if obj, ok := source.(map[string]any); ok {
		return obj[field], nil
	}
	return nil, nil
}

func (m *MockRuntime) record(c Call) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
}

func (m *MockRuntime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	m.record(Call{ObjectType: objectType, Field: field, Source: source, Args: args})
	return m.resolve(ctx, objectType, field, source, args)
}

func (m *MockRuntime) BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult {
	m.mu.Lock()
	m.batches++
	batch := m.batches
	m.mu.Unlock()

	results := make([]AsyncResolveResult, len(tasks))
	for i, t := range tasks {
		m.record(Call{
			ObjectType: t.ObjectType,
			Field:      t.Field,
			Source:     t.Source,
			Args:       t.Args,
			Inherited:  t.Inherited,
			Batch:      batch,
		})
		v, err := m.resolve(ctx, t.ObjectType, t.Field, t.Source, t.Args)
		results[i] = AsyncResolveResult{Value: v, Error: err}
	}
	return results
}

func (m *MockRuntime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	m.mu.Lock()
	typeOf := m.typeOf
	m.mu.Unlock()
	if typeOf != nil {
		return typeOf(value)
	}
	if obj, ok := value.(map[string]any); ok {
		if name, ok := obj["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot resolve concrete type of %s", abstractType)
}

func (m *MockRuntime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	m.mu.Lock()
	serialize := m.serialize
	m.mu.Unlock()
	if serialize != nil {
		return serialize(typeName, value)
	}
	return value, nil
}

// Calls returns the recorded calls in order.
func (m *MockRuntime) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Batches returns how many times BatchResolveAsync was called.
func (m *MockRuntime) Batches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

// Fields returns "ObjectType.field" of every recorded call in order.
func (m *MockRuntime) Fields() []string {
	calls := m.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.ObjectType + "." + c.Field
	}
	return out
}

// Reset forgets recorded calls. Resolvers stay.
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.batches = 0
}

var _ Runtime = (*MockRuntime)(nil)
