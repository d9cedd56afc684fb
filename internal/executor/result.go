package executor

import "errors"

// GraphQLError is a located error in an execution result.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string { return e.Message }

// ExecutionResult is the outcome of one operation. Data is nil when the
// request failed before execution or a null reached the root.
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// failed builds a result for a request that never started executing.
func failed(message string) *ExecutionResult {
	return &ExecutionResult{Errors: []GraphQLError{{Message: message}}}
}

// locate turns a resolver error into a GraphQLError at path, keeping the
// extensions the error exposes.
func locate(err error, path Path) GraphQLError {
	return GraphQLError{Message: err.Error(), Path: path, Extensions: extensionsOf(err)}
}

// extensionsOf returns the extensions exposed by err or any error it wraps.
func extensionsOf(err error) map[string]any {
	var ext interface{ Extensions() map[string]any }
	if errors.As(err, &ext) {
		return ext.Extensions()
	}
	return nil
}
