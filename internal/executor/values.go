package executor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	language "github.com/hanpama/fetchgraph/internal/language"
	schema "github.com/hanpama/fetchgraph/internal/schema"
)

// coerceVariableValues checks the provided variables against the operation's
// variable definitions. Defaults fill in missing values.
func coerceVariableValues(
	sch *schema.Schema,
	operation *language.OperationDefinition,
	provided map[string]any,
) (map[string]any, error) {
	out := make(map[string]any, len(operation.VariableDefinitions))
	for _, def := range operation.VariableDefinitions {
		name := def.Variable
		val, ok := lookupVariable(provided, name)
		if !ok {
			switch {
			case def.DefaultValue != nil:
				val = astValueToGo(def.DefaultValue)
			case def.Type.NonNull:
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", name, def.Type.String())
			default:
				continue
			}
		}
		if val == nil && def.Type.NonNull {
			return nil, fmt.Errorf("variable $%s of type %s cannot be null", name, def.Type.String())
		}
		cv, err := coerceInput(sch, val, typeRefFromAST(def.Type))
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s: %w", name, def.Type.String(), err)
		}
		out[name] = cv
	}
	return out, nil
}

func lookupVariable(vars map[string]any, name string) (any, bool) {
	if vars == nil {
		return nil, false
	}
	if v, ok := vars[name]; ok {
		return v, true
	}
	v, ok := vars[strings.TrimPrefix(name, "$")]
	return v, ok
}

// coerceArgumentValues builds the argument map of one field. Failures are
// recorded at path and reported with ok == false.
func coerceArgumentValues(state *executionState, fieldDef *schema.Field, arguments language.ArgumentList, path Path) (args map[string]any, ok bool) {
	out := make(map[string]any, len(fieldDef.Arguments))
	ok = true
	for _, def := range fieldDef.Arguments {
		arg := arguments.ForName(def.Name)
		if arg == nil || (arg.Value.Kind == language.Variable && !hasVariable(state.variableValues, arg.Value.Raw)) {
			switch {
			case def.DefaultValue != nil:
				out[def.Name] = def.DefaultValue
			case schema.IsNonNull(def.Type):
				state.addError(fmt.Sprintf("argument '%s' of required type %s was not provided", def.Name, def.Type), path)
				ok = false
			}
			continue
		}
		cv, err := coerceInput(state.schema, valueFromAST(state, arg.Value), def.Type)
		if err != nil {
			state.addError(fmt.Sprintf("argument '%s': %v", def.Name, err), path)
			ok = false
			continue
		}
		out[def.Name] = cv
	}
	return out, ok
}

func hasVariable(vars map[string]any, name string) bool {
	_, ok := lookupVariable(vars, name)
	return ok
}

// valueFromAST converts a literal to a Go value, substituting variables at
// any depth.
func valueFromAST(state *executionState, v *language.Value) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case language.Variable:
		val, _ := lookupVariable(state.variableValues, v.Raw)
		return val
	case language.ListValue:
		out := make([]any, len(v.Children))
		for i, c := range v.Children {
			out[i] = valueFromAST(state, c.Value)
		}
		return out
	case language.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			out[c.Name] = valueFromAST(state, c.Value)
		}
		return out
	default:
		return astValueToGo(v)
	}
}

// astValueToGo converts a constant literal.
func astValueToGo(v *language.Value) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case language.IntValue:
		if n, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
			return int(n)
		}
		f, _ := strconv.ParseFloat(v.Raw, 64)
		return f
	case language.FloatValue:
		f, _ := strconv.ParseFloat(v.Raw, 64)
		return f
	case language.StringValue, language.BlockValue, language.EnumValue:
		return v.Raw
	case language.BooleanValue:
		return v.Raw == "true"
	case language.ListValue:
		out := make([]any, len(v.Children))
		for i, c := range v.Children {
			out[i] = astValueToGo(c.Value)
		}
		return out
	case language.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			out[c.Name] = astValueToGo(c.Value)
		}
		return out
	default:
		return nil
	}
}

// coerceInput coerces value to the input type t. Named types that are not
// in sch are treated as custom scalars and kept as is.
func coerceInput(sch *schema.Schema, value any, t *schema.TypeRef) (any, error) {
	if schema.IsNonNull(t) {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type %s", t)
		}
		return coerceInput(sch, value, schema.Unwrap(t))
	}
	if value == nil {
		return nil, nil
	}
	if schema.IsList(t) {
		inner := schema.Unwrap(t)
		items, ok := value.([]any)
		if !ok {
			// A single item stands for a list of one.
			item, err := coerceInput(sch, value, inner)
			if err != nil {
				return nil, err
			}
			return []any{item}, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			cv, err := coerceInput(sch, item, inner)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = cv
		}
		return out, nil
	}

	name := schema.GetNamedType(t)
	switch name {
	case "Int":
		return coerceInt(value)
	case "Float":
		return coerceFloat(value)
	case "String":
		if s, ok := value.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("cannot coerce %v (%T) to String", value, value)
	case "Boolean":
		if b, ok := value.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("cannot coerce %v (%T) to Boolean", value, value)
	case "ID":
		return coerceID(value)
	}

	var named *schema.Type
	if sch != nil {
		named = sch.Types[name]
	}
	if named == nil {
		return value, nil
	}
	switch named.Kind {
	case schema.TypeKindEnum:
		return coerceEnum(named, value)
	case schema.TypeKindInputObject:
		return coerceInputObject(sch, named, value)
	default:
		return value, nil
	}
}

func coerceInputObject(sch *schema.Schema, t *schema.Type, value any) (any, error) {
	fields, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cannot coerce %v (%T) to %s", value, value, t.Name)
	}
	known := make(map[string]bool, len(t.InputFields))
	out := make(map[string]any, len(fields))
	for _, f := range t.InputFields {
		known[f.Name] = true
		v, present := fields[f.Name]
		if !present {
			switch {
			case f.DefaultValue != nil:
				out[f.Name] = f.DefaultValue
			case schema.IsNonNull(f.Type):
				return nil, fmt.Errorf("required field '%s' of %s was not provided", f.Name, t.Name)
			}
			continue
		}
		cv, err := coerceInput(sch, v, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", f.Name, err)
		}
		out[f.Name] = cv
	}
	for name := range fields {
		if !known[name] {
			return nil, fmt.Errorf("unknown field '%s' on %s", name, t.Name)
		}
	}
	if t.OneOf && len(out) != 1 {
		return nil, fmt.Errorf("exactly one field of %s must be provided", t.Name)
	}
	return out, nil
}

func coerceEnum(t *schema.Type, value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("cannot coerce %v (%T) to %s", value, value, t.Name)
	}
	for _, ev := range t.EnumValues {
		if ev.Name == s {
			return s, nil
		}
	}
	return nil, fmt.Errorf("value %q does not exist in enum %s", s, t.Name)
}

func coerceInt(value any) (any, error) {
	var n int64
	switch v := value.(type) {
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("cannot coerce non-integer %v to Int", v)
		}
		n = int64(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("cannot coerce %s to Int", v)
		}
		n = i
	default:
		return nil, fmt.Errorf("cannot coerce %v (%T) to Int", value, value)
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, fmt.Errorf("cannot coerce %d to Int: out of 32-bit range", n)
	}
	return int(n), nil
}

func coerceFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("cannot coerce %s to Float", v)
		}
		return f, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Float", value, value)
}

func coerceID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return v.String(), nil
		}
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to ID", value, value)
}
