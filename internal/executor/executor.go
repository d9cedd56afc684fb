package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	language "github.com/hanpama/fetchgraph/internal/language"
	schema "github.com/hanpama/fetchgraph/internal/schema"
)

// Path locates a value in the response. Elements are response names
// (string) and list indexes (int).
type Path []PathElement

type PathElement any

// String renders p as user.posts[0].title.
func (p Path) String() string {
	var b strings.Builder
	for i, elem := range p {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		case int:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(v))
			b.WriteByte(']')
		}
	}
	return b.String()
}

func (p Path) with(elem PathElement) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = elem
	return out
}

type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// queuedField is an async field waiting for the next batch.
type queuedField struct {
	task   AsyncResolveTask
	path   Path
	typ    *schema.TypeRef
	fields []*language.Field
}

// unresolved holds the place of an async field in a partial response.
type unresolved struct{}

type executionState struct {
	ctx            context.Context
	runtime        Runtime
	schema         *schema.Schema
	document       *language.QueryDocument
	variableValues map[string]any
	request        *RequestInfo
	queue          []queuedField
	errors         []GraphQLError

	// required holds the keys of response positions with a Non-Null type.
	required map[string]bool
	// nulled holds the keys of positions replaced by null after a Non-Null
	// violation below them. Queued work under them is dropped.
	nulled map[string]bool
	// dataNull is set when a Non-Null violation reached the root.
	dataNull bool
	// carried holds the arguments returned with async results, by path.
	carried map[string]map[string]any
}

// ExecuteRequest runs one operation of document. Sync fields are expanded
// as they are reached; async fields are queued and resolved one depth at a
// time with a single BatchResolveAsync call per depth. Root fields of a
// mutation are resolved one after another, each with its whole subtree.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	operation, err := selectOperation(document, operationName)
	if err != nil {
		return failed(err.Error())
	}
	variables, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return failed(err.Error())
	}
	rootType, err := e.rootType(operation.Operation)
	if err != nil {
		return failed(err.Error())
	}

	state := &executionState{
		ctx:            ctx,
		runtime:        e.runtime,
		schema:         e.schema,
		document:       document,
		variableValues: variables,
		request:        &RequestInfo{Document: document, Operation: operation, Variables: variables},
		required:       make(map[string]bool),
		nulled:         make(map[string]bool),
		carried:        make(map[string]map[string]any),
	}

	data := executeSelectionSet(state, rootType, operation.SelectionSet, initialValue, nil)
	if operation.Operation == language.Mutation {
		roots := state.queue
		state.queue = nil
		for _, root := range roots {
			state.queue = []queuedField{root}
			state.drain(data)
		}
	} else {
		state.drain(data)
	}

	if state.dataNull {
		return &ExecutionResult{Errors: state.errors}
	}
	return &ExecutionResult{Data: data, Errors: state.errors}
}

func (e *Executor) rootType(op language.Operation) (*schema.Type, error) {
	var t *schema.Type
	switch op {
	case language.Query:
		t = e.schema.GetQueryType()
	case language.Mutation:
		t = e.schema.GetMutationType()
	default:
		return nil, fmt.Errorf("%s operations are not supported", op)
	}
	if t == nil {
		return nil, fmt.Errorf("schema has no %s root type", op)
	}
	return t, nil
}

func selectOperation(document *language.QueryDocument, name string) (*language.OperationDefinition, error) {
	if name != "" {
		if op := document.Operations.ForName(name); op != nil {
			return op, nil
		}
		return nil, fmt.Errorf("unknown operation %q", name)
	}
	switch len(document.Operations) {
	case 0:
		return nil, errors.New("document has no operations")
	case 1:
		return document.Operations[0], nil
	default:
		return nil, errors.New("operation name is required when the document has several operations")
	}
}

func executeSelectionSet(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet, source any, path Path) map[string]any {
	out := make(map[string]any)
	for _, group := range collectFields(state, objectType, selectionSet) {
		fieldPath := path.with(group.ResponseName)
		name := group.Fields[0].Name
		if name == "__typename" {
			out[group.ResponseName] = objectType.Name
			continue
		}
		def := getFieldDefinition(objectType, name)
		if def == nil {
			state.addError(fmt.Sprintf("Cannot query field '%s' on type '%s'", name, objectType.Name), fieldPath)
			continue
		}
		if schema.IsNonNull(def.Type) {
			state.required[fieldPath.String()] = true
		}
		value := executeField(state, objectType, def, group.Fields, source, fieldPath)
		if isNullish(value) {
			if schema.IsNonNull(def.Type) {
				state.discard(path)
				return nil
			}
			value = nil
		}
		out[group.ResponseName] = value
	}
	return out
}

func executeField(state *executionState, objectType *schema.Type, def *schema.Field, fields []*language.Field, source any, path Path) any {
	args, ok := coerceArgumentValues(state, def, fields[0].Arguments, path)
	if !ok {
		return nil
	}
	if def.Async {
		state.queue = append(state.queue, queuedField{
			task: AsyncResolveTask{
				ObjectType:   objectType.Name,
				Field:        def.Name,
				ResponseName: responseNameOf(fields[0]),
				Source:       source,
				Args:         args,
				Inherited:    state.inheritedArgs(path),
				Request:      state.request,
			},
			path:   path,
			typ:    def.Type,
			fields: fields,
		})
		return unresolved{}
	}
	value, err := state.runtime.ResolveSync(state.ctx, objectType.Name, def.Name, source, args)
	if err != nil {
		state.errors = append(state.errors, locate(err, path))
		return nil
	}
	return completeValue(state, def.Type, fields, value, path)
}

// drain resolves queued fields depth by depth until nothing is left.
func (s *executionState) drain(data map[string]any) {
	for len(s.queue) > 0 && !s.dataNull {
		s.flush(data)
	}
}

// flush sends the live queued fields as one batch and completes the results.
// Fields completed here may queue the next depth.
func (s *executionState) flush(data map[string]any) {
	batch := make([]queuedField, 0, len(s.queue))
	for _, q := range s.queue {
		if !s.isDiscarded(q.path) {
			batch = append(batch, q)
		}
	}
	s.queue = nil
	if len(batch) == 0 {
		return
	}

	tasks := make([]AsyncResolveTask, len(batch))
	for i, q := range batch {
		tasks[i] = q.task
	}
	results := s.runtime.BatchResolveAsync(s.ctx, tasks)
	for i, q := range batch {
		if i >= len(results) {
			s.completeAsync(data, q, AsyncResolveResult{
				Error: fmt.Errorf("runtime returned %d results for %d tasks", len(results), len(tasks)),
			})
			continue
		}
		s.completeAsync(data, q, results[i])
	}
}

func (s *executionState) completeAsync(data map[string]any, q queuedField, res AsyncResolveResult) {
	if s.dataNull || s.isDiscarded(q.path) {
		return
	}
	var value any
	if res.Error != nil {
		s.errors = append(s.errors, locate(res.Error, q.path))
	} else {
		if res.Args != nil {
			s.carried[q.path.String()] = res.Args
		}
		value = completeValue(s, q.typ, q.fields, res.Value, q.path)
	}
	if isNullish(value) {
		if schema.IsNonNull(q.typ) {
			s.propagateNull(data, q.path)
			return
		}
		value = nil
	}
	setValueAtPath(data, q.path, value)
}

// propagateNull writes null at the nearest nullable position enclosing
// path, path included, and discards queued work below it.
func (s *executionState) propagateNull(data map[string]any, path Path) {
	for p := path; len(p) > 0; p = p[:len(p)-1] {
		if !s.required[p.String()] {
			setValueAtPath(data, p, nil)
			s.discard(p)
			return
		}
	}
	s.dataNull = true
}

func completeValue(state *executionState, fieldType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	if schema.IsNonNull(fieldType) {
		if isNullish(result) {
			if !state.hasErrorAt(path) {
				state.addError("Cannot return null for non-nullable field "+path.String(), path)
			}
			return nil
		}
		return completeValue(state, schema.Unwrap(fieldType), fields, result, path)
	}
	if isNullish(result) {
		return nil
	}
	if schema.IsList(fieldType) {
		return completeListValue(state, fieldType, fields, result, path)
	}

	name := schema.GetNamedType(fieldType)
	named := state.schema.Types[name]
	if named == nil {
		state.addError("Unknown type: "+name, path)
		return nil
	}
	switch named.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		v, err := state.runtime.SerializeLeafValue(state.ctx, name, result)
		if err != nil {
			state.errors = append(state.errors, locate(err, path))
			return nil
		}
		return v
	case schema.TypeKindObject:
		return executeSelectionSet(state, named, mergeSelectionSets(fields), result, path)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		return completeAbstractValue(state, named, fields, result, path)
	default:
		state.addError(fmt.Sprintf("Cannot complete value of unexpected type: %s", named.Kind), path)
		return nil
	}
}

func completeListValue(state *executionState, listType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	items, ok := listItems(result)
	if !ok {
		state.addError(fmt.Sprintf("Expected list value, got %T", result), path)
		return nil
	}
	inner := schema.Unwrap(listType)
	out := make([]any, len(items))
	for i, item := range items {
		itemPath := path.with(i)
		if schema.IsNonNull(inner) {
			state.required[itemPath.String()] = true
		}
		v := completeValue(state, inner, fields, item, itemPath)
		if isNullish(v) {
			if schema.IsNonNull(inner) {
				state.discard(path)
				return nil
			}
			v = nil
		}
		out[i] = v
	}
	return out
}

func listItems(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func completeAbstractValue(state *executionState, abstract *schema.Type, fields []*language.Field, result any, path Path) any {
	typeName, err := state.runtime.ResolveType(state.ctx, abstract.Name, result)
	if err != nil {
		state.errors = append(state.errors, locate(err, path))
		return nil
	}
	objectType := state.schema.Types[typeName]
	if objectType == nil || objectType.Kind != schema.TypeKindObject {
		state.addError(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstract.Name, typeName), path)
		return nil
	}
	if !abstract.Admits(typeName) && !slices.Contains(objectType.Interfaces, abstract.Name) {
		state.addError(fmt.Sprintf("Runtime type %s is not a possible type of %s", typeName, abstract.Name), path)
		return nil
	}
	return executeSelectionSet(state, objectType, mergeSelectionSets(fields), result, path)
}

// discard marks the position at path as replaced by null. The root
// position nulls the whole response.
func (s *executionState) discard(path Path) {
	if len(path) == 0 {
		s.dataNull = true
		return
	}
	s.nulled[path.String()] = true
}

func (s *executionState) isDiscarded(path Path) bool {
	if len(s.nulled) == 0 {
		return false
	}
	for i := 1; i <= len(path); i++ {
		if s.nulled[path[:i].String()] {
			return true
		}
	}
	return false
}

// inheritedArgs returns the carried arguments of the nearest strict ancestor
// of p that recorded any.
func (s *executionState) inheritedArgs(p Path) map[string]any {
	if len(s.carried) == 0 {
		return nil
	}
	for i := len(p) - 1; i > 0; i-- {
		if args, ok := s.carried[p[:i].String()]; ok {
			return args
		}
	}
	return nil
}

func (s *executionState) addError(message string, path Path) {
	s.errors = append(s.errors, GraphQLError{Message: message, Path: path})
}

func (s *executionState) hasErrorAt(path Path) bool {
	key := path.String()
	for _, err := range s.errors {
		if err.Path.String() == key {
			return true
		}
	}
	return false
}

// setValueAtPath replaces the value at path. Positions that no longer exist
// in data are left alone.
func setValueAtPath(data map[string]any, path Path, value any) {
	var cur any = data
	for i, elem := range path {
		last := i == len(path)-1
		switch k := elem.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return
			}
			if last {
				m[k] = value
				return
			}
			cur = m[k]
		case int:
			list, ok := cur.([]any)
			if !ok || k < 0 || k >= len(list) {
				return
			}
			if last {
				list[k] = value
				return
			}
			cur = list[k]
		}
	}
}

func typeRefFromAST(t *language.Type) *schema.TypeRef {
	if t == nil {
		return nil
	}
	var ref *schema.TypeRef
	if t.Elem != nil {
		ref = schema.ListType(typeRefFromAST(t.Elem))
	} else {
		ref = schema.NamedType(t.NamedType)
	}
	if t.NonNull {
		return schema.NonNullType(ref)
	}
	return ref
}

func responseNameOf(f *language.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	if len(fields) == 1 {
		return fields[0].SelectionSet
	}
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// isNullish reports nil and typed nil values.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
