package schema

import (
	"context"

	language "github.com/hanpama/fetchgraph/internal/language"
)

// ResolveParams describes one field invocation.
type ResolveParams struct {
	ObjectType   string
	Field        *Field
	ResponseName string
	Source       any
	// Args are the coerced field arguments.
	Args map[string]any
	// Inherited holds the arguments carried by the nearest ancestor whose
	// resolver returned Resolved.Args.
	Inherited map[string]any
	Operation *language.OperationDefinition
	Fragments language.FragmentDefinitionList
	Variables map[string]any
}

// Resolved is the outcome of a Resolver. A non-nil Args map is made
// available to resolvers of fields nested below Value.
type Resolved struct {
	Value any
	Args  map[string]any
}

// Resolver produces the value of a field.
type Resolver interface {
	Resolve(ctx context.Context, p ResolveParams) (Resolved, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, p ResolveParams) (Resolved, error)

func (f ResolverFunc) Resolve(ctx context.Context, p ResolveParams) (Resolved, error) {
	return f(ctx, p)
}
