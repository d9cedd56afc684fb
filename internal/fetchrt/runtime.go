package fetchrt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hanpama/fetchgraph/internal/executor"
	"github.com/hanpama/fetchgraph/internal/schema"
	"github.com/hanpama/fetchgraph/internal/upstream"
)

// Runtime implements executor.Runtime for schemas whose async fields carry a
// schema.Resolver.
//   - Source shape: object values are the generic maps produced by the
//     reshaper; sync fields read their value by name from the parent map.
//   - Concurrency: BatchResolveAsync groups tasks by (objectType, field) and
//     runs every task of every group in parallel, bounded by the configured
//     limit. Resolvers must be safe for concurrent use.
//   - Determinism: results preserve input ordering; partial success is
//     supported.
type Runtime struct {
	fields map[string]*schema.Field // key: Type.field
	limit  int
	logger *zap.Logger
}

var _ executor.Runtime = (*Runtime)(nil)

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithConcurrency bounds the number of resolvers running at once per depth.
// Zero or less means unbounded.
func WithConcurrency(n int) RuntimeOption { return func(r *Runtime) { r.limit = n } }

// WithRuntimeLogger sets the runtime logger.
func WithRuntimeLogger(l *zap.Logger) RuntimeOption { return func(r *Runtime) { r.logger = l } }

func NewRuntime(sch *schema.Schema, opts ...RuntimeOption) *Runtime {
	r := &Runtime{fields: map[string]*schema.Field{}, logger: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	for name, t := range sch.Types {
		for _, f := range t.Fields {
			if f.Resolver != nil {
				r.fields[name+"."+f.Name] = f
			}
		}
	}
	return r
}

// ResolveSync reads the field from a map source. It never performs I/O.
func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	_ = ctx
	_ = args
	m, ok := source.(map[string]any)
	if !ok {
		return nil, nil
	}
	return m[field], nil
}

// BatchResolveAsync runs the resolvers of one execution depth.
func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	type groupKey struct {
		objectType string
		field      string
	}
	groups := map[groupKey][]int{}
	var order []groupKey
	for i, t := range tasks {
		k := groupKey{objectType: t.ObjectType, field: t.Field}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	var g errgroup.Group
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for _, k := range order {
		field := r.fields[k.objectType+"."+k.field]
		idxs := groups[k]
		if field == nil {
			for _, i := range idxs {
				results[i] = executor.AsyncResolveResult{Error: fmt.Errorf("no resolver registered for %s.%s", k.objectType, k.field)}
			}
			continue
		}
		r.logger.Debug("resolving group",
			zap.String("field", k.objectType+"."+k.field),
			zap.Int("tasks", len(idxs)),
		)
		for _, i := range idxs {
			g.Go(func() error {
				results[i] = r.resolve(ctx, field, tasks[i])
				return nil
			})
		}
	}
	_ = g.Wait()
	return results
}

func (r *Runtime) resolve(ctx context.Context, field *schema.Field, task executor.AsyncResolveTask) (res executor.AsyncResolveResult) {
	defer func() {
		if p := recover(); p != nil {
			res = executor.AsyncResolveResult{Error: fmt.Errorf("resolver %s.%s panicked: %v", task.ObjectType, task.Field, p)}
		}
	}()
	params := schema.ResolveParams{
		ObjectType:   task.ObjectType,
		Field:        field,
		ResponseName: task.ResponseName,
		Source:       task.Source,
		Args:         task.Args,
		Inherited:    task.Inherited,
	}
	if req := task.Request; req != nil {
		params.Operation = req.Operation
		params.Variables = req.Variables
		if req.Document != nil {
			params.Fragments = req.Document.Fragments
		}
	}
	out, err := field.Resolver.Resolve(ctx, params)
	if err != nil {
		if upstream.IsTransport(err) {
			r.logger.Warn("downstream unreachable",
				zap.String("field", task.ObjectType+"."+task.Field),
				zap.Error(err),
			)
		}
		return executor.AsyncResolveResult{Error: err}
	}
	return executor.AsyncResolveResult{Value: out.Value, Args: out.Args}
}

// ResolveType reads __typename from a map value.
func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if m, ok := value.(map[string]any); ok {
		if name, ok := m["__typename"].(string); ok && name != "" {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot determine concrete type of %s from %T without __typename", abstractType, value)
}

// SerializeLeafValue converts decoded JSON values to the representation of
// the named scalar. Custom scalars keep their decoded shape.
func (r *Runtime) SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return base64.StdEncoding.EncodeToString(v), nil
	case json.Number:
		return serializeNumber(scalarOrEnumTypeName, v)
	case map[string]any, []any:
		if scalarOrEnumTypeName == "String" {
			b, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			return string(b), nil
		}
	}
	return value, nil
}

func serializeNumber(typeName string, n json.Number) (any, error) {
	switch typeName {
	case "Int":
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil || f != float64(int64(f)) {
			return nil, fmt.Errorf("Int cannot represent non-integer value %s", n)
		}
		return int64(f), nil
	case "Float":
		return n.Float64()
	case "String", "ID":
		return n.String(), nil
	case "Boolean":
		return strconv.ParseBool(n.String())
	}
	return n, nil
}
