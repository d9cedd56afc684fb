package executor

import (
	"context"

	language "github.com/hanpama/fetchgraph/internal/language"
)

// Runtime is what the Executor needs from its host.
//
// For every depth of the response the Executor first expands sync fields
// through ResolveSync, then calls BatchResolveAsync once with every async
// field reached at that depth. The next depth starts only after the batch
// returns and its results are completed. ResolveSync is never called for a
// field marked Async.
//
// Errors from any method become located errors in the result. A null in a
// Non-Null position propagates to the nearest nullable ancestor.
//
// Implementations are shared by concurrent executions and must not mutate
// sources or arguments.
type Runtime interface {
	// ResolveSync returns the raw value of a sync field. The Executor
	// completes it, including nested selections. (nil, nil) is null.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves one depth of async fields. It must return
	// exactly one result per task, results[i] belonging to tasks[i]. A
	// failed element does not fail its siblings.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType names the concrete object type of a value whose declared
	// type is the interface or union abstractType.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue converts a scalar or enum value to its JSON-safe
	// form. Enums serialize to their name.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

// AsyncResolveTask is one async field instance of a batch.
type AsyncResolveTask struct {
	// ObjectType and Field name the field definition.
	ObjectType string
	Field      string
	// ResponseName is the alias of the field, or its name when unaliased.
	ResponseName string
	// Source is the parent object value, or the initial value for root
	// fields.
	Source any
	// Args are the coerced field arguments.
	Args map[string]any
	// Inherited are the arguments carried by the nearest ancestor async
	// result that returned AsyncResolveResult.Args. Nil when none did.
	Inherited map[string]any
	// Request describes the operation being executed.
	Request *RequestInfo
}

// RequestInfo is shared by all tasks of one execution.
type RequestInfo struct {
	Document  *language.QueryDocument
	Operation *language.OperationDefinition
	// Variables are the coerced variable values of the operation.
	Variables map[string]any
}

type AsyncResolveResult struct {
	// Value is the raw value to complete. Ignored when Error is set.
	Value any
	Error error
	// Args, when non-nil, is carried to async fields below this value.
	Args map[string]any
}
