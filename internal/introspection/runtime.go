// Package introspection answers __schema and __type queries over a schema
// by wrapping the runtime that serves it.
package introspection

import (
	"context"
	"fmt"
	"sort"
	"strings"

	executor "github.com/hanpama/fetchgraph/internal/executor"
	schema "github.com/hanpama/fetchgraph/internal/schema"
)

// Wrap returns a runtime that resolves the introspection meta fields itself
// and delegates everything else to base, together with the schema the
// executor must use for it. The meta types are reported alongside the
// types of sch.
func Wrap(base executor.Runtime, sch *schema.Schema) (executor.Runtime, *schema.Schema) {
	ext := extend(sch)
	return &runtime{base: base, schema: ext}, ext
}

type runtime struct {
	base   executor.Runtime
	schema *schema.Schema
}

var _ executor.Runtime = (*runtime)(nil)

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	switch objectType {
	case "__Schema":
		return r.schemaField(field)
	case "__Type":
		return r.typeField(source.(*schema.TypeRef), field, args)
	case "__Field":
		return fieldField(source.(*schema.Field), field, args)
	case "__InputValue":
		return r.inputValueField(source.(*schema.InputValue), field)
	case "__EnumValue":
		return enumValueField(source.(*schema.EnumValue), field)
	case "__Directive":
		return directiveField(source.(*schema.Directive), field, args)
	}
	if objectType == r.schema.QueryType {
		switch field {
		case "__schema":
			return r.schema, nil
		case "__type":
			name, _ := args["name"].(string)
			if r.schema.Types[name] == nil {
				return nil, nil
			}
			return schema.NamedType(name), nil
		}
	}
	return r.base.ResolveSync(ctx, objectType, field, source, args)
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	if strings.HasPrefix(typeName, "__") {
		return value, nil
	}
	return r.base.SerializeLeafValue(ctx, typeName, value)
}

func (r *runtime) schemaField(field string) (any, error) {
	switch field {
	case "description":
		return optionalString(r.schema.Description), nil
	case "types":
		names := make([]string, 0, len(r.schema.Types))
		for name := range r.schema.Types {
			names = append(names, name)
		}
		return r.named(names, true), nil
	case "queryType":
		return schema.NamedType(r.schema.QueryType), nil
	case "mutationType":
		return r.root(r.schema.MutationType), nil
	case "subscriptionType":
		return r.root(r.schema.SubscriptionType), nil
	case "directives":
		out := make([]*schema.Directive, 0, len(r.schema.Directives))
		for _, d := range r.schema.Directives {
			out = append(out, d)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, nil
	}
	return nil, unknownField("__Schema", field)
}

func (r *runtime) root(name string) any {
	if name == "" || r.schema.Types[name] == nil {
		return nil
	}
	return schema.NamedType(name)
}

// named converts type names to __Type values, skipping unknown names.
func (r *runtime) named(names []string, sorted bool) []*schema.TypeRef {
	if sorted {
		sort.Strings(names)
	}
	out := make([]*schema.TypeRef, 0, len(names))
	for _, name := range names {
		if r.schema.Types[name] != nil {
			out = append(out, schema.NamedType(name))
		}
	}
	return out
}

func (r *runtime) typeField(ref *schema.TypeRef, field string, args map[string]any) (any, error) {
	if ref.Kind != schema.TypeRefKindNamed {
		switch field {
		case "kind":
			return string(ref.Kind), nil
		case "ofType":
			return ref.OfType, nil
		}
		return nil, nil
	}

	t := r.schema.Types[ref.Named]
	if t == nil {
		return nil, fmt.Errorf("unknown type %q", ref.Named)
	}
	deprecated := withDeprecated(args)
	switch field {
	case "kind":
		return string(t.Kind), nil
	case "name":
		return t.Name, nil
	case "description":
		return optionalString(t.Description), nil
	case "specifiedByURL":
		if t.SpecifiedByURL == nil {
			return nil, nil
		}
		return *t.SpecifiedByURL, nil
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, nil
		}
		out := []*schema.Field{}
		for _, f := range t.Fields {
			if !strings.HasPrefix(f.Name, "__") && (deprecated || !f.IsDeprecated) {
				out = append(out, f)
			}
		}
		return out, nil
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, nil
		}
		return r.named(append([]string(nil), t.Interfaces...), false), nil
	case "possibleTypes":
		if !t.IsAbstract() {
			return nil, nil
		}
		return r.named(append([]string(nil), t.PossibleTypes...), true), nil
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil, nil
		}
		out := []*schema.EnumValue{}
		for _, v := range t.EnumValues {
			if deprecated || !v.IsDeprecated {
				out = append(out, v)
			}
		}
		return out, nil
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil, nil
		}
		return filterInputValues(t.InputFields, deprecated), nil
	case "ofType":
		return nil, nil
	case "isOneOf":
		if t.Kind != schema.TypeKindInputObject {
			return nil, nil
		}
		return t.OneOf, nil
	}
	return nil, unknownField("__Type", field)
}

func fieldField(f *schema.Field, field string, args map[string]any) (any, error) {
	switch field {
	case "name":
		return f.Name, nil
	case "description":
		return optionalString(f.Description), nil
	case "args":
		return filterInputValues(f.Arguments, withDeprecated(args)), nil
	case "type":
		return f.Type, nil
	case "isDeprecated":
		return f.IsDeprecated, nil
	case "deprecationReason":
		return deprecationReason(f.IsDeprecated, f.DeprecationReason), nil
	}
	return nil, unknownField("__Field", field)
}

func (r *runtime) inputValueField(v *schema.InputValue, field string) (any, error) {
	switch field {
	case "name":
		return v.Name, nil
	case "description":
		return optionalString(v.Description), nil
	case "type":
		return v.Type, nil
	case "defaultValue":
		if v.DefaultValue == nil {
			return nil, nil
		}
		return r.literal(v.DefaultValue, v.Type), nil
	case "isDeprecated":
		return v.IsDeprecated, nil
	case "deprecationReason":
		return deprecationReason(v.IsDeprecated, v.DeprecationReason), nil
	}
	return nil, unknownField("__InputValue", field)
}

func enumValueField(v *schema.EnumValue, field string) (any, error) {
	switch field {
	case "name":
		return v.Name, nil
	case "description":
		return optionalString(v.Description), nil
	case "isDeprecated":
		return v.IsDeprecated, nil
	case "deprecationReason":
		return deprecationReason(v.IsDeprecated, v.DeprecationReason), nil
	}
	return nil, unknownField("__EnumValue", field)
}

func directiveField(d *schema.Directive, field string, args map[string]any) (any, error) {
	switch field {
	case "name":
		return d.Name, nil
	case "description":
		return optionalString(d.Description), nil
	case "isRepeatable":
		return d.IsRepeatable, nil
	case "locations":
		return append([]string{}, d.Locations...), nil
	case "args":
		return filterInputValues(d.Arguments, withDeprecated(args)), nil
	}
	return nil, unknownField("__Directive", field)
}

func filterInputValues(values []*schema.InputValue, deprecated bool) []*schema.InputValue {
	out := []*schema.InputValue{}
	for _, v := range values {
		if deprecated || !v.IsDeprecated {
			out = append(out, v)
		}
	}
	return out
}

func withDeprecated(args map[string]any) bool {
	b, _ := args["includeDeprecated"].(bool)
	return b
}

func optionalString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deprecationReason(deprecated bool, reason string) any {
	if !deprecated {
		return nil
	}
	return reason
}

func unknownField(typeName, field string) error {
	return fmt.Errorf("introspection type %s has no field %q", typeName, field)
}
