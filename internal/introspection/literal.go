package introspection

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	schema "github.com/hanpama/fetchgraph/internal/schema"
)

// literal prints a default value in GraphQL literal syntax for typ.
func (r *runtime) literal(value any, typ *schema.TypeRef) string {
	if value == nil {
		return "null"
	}
	for typ != nil && typ.Kind == schema.TypeRefKindNonNull {
		typ = typ.OfType
	}
	if typ != nil && typ.Kind == schema.TypeRefKindList {
		items, ok := value.([]any)
		if !ok {
			return r.literal(value, typ.OfType)
		}
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = r.literal(item, typ.OfType)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}

	var named *schema.Type
	if typ != nil {
		named = r.schema.Types[typ.Named]
	}
	switch v := value.(type) {
	case string:
		if named != nil && named.Kind == schema.TypeKindEnum {
			return v
		}
		b, _ := json.Marshal(v)
		return string(b)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			var fieldType *schema.TypeRef
			if named != nil {
				if f := named.InputField(k); f != nil {
					fieldType = f.Type
				}
			}
			parts[i] = k + ": " + r.literal(v[k], fieldType)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = r.literal(item, nil)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(value)
}
