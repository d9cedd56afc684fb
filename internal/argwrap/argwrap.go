// Package argwrap rewrites outgoing graph operations so that the flat
// arguments of a field are sent as one input object variable.
//
//	query getSession($sessionId: String, $sessionName: String) {
//	  getSessionDetails(sessionId: $sessionId, sessionName: $sessionName) { id }
//	}
//
// becomes, for the wrapper {name: "session", type: "ACSession"},
//
//	query getSession($session: ACSession) {
//	  getSessionDetails(session: $session) { id }
//	}
//
// and the variables {sessionId, sessionName} are sent as {session: {...}}.
package argwrap

import (
	"errors"
	"fmt"

	"github.com/hanpama/fetchgraph/internal/language"
)

var (
	ErrNoVariables = errors.New("operation declares no variables")
	ErrNoField     = errors.New("field not found in operation")
	ErrNoArguments = errors.New("field has no arguments")
)

// Wrapper is a compiled {name, type} argument wrapper.
type Wrapper struct {
	Name string
	Type *language.Type
}

// New validates the wrapper variable name and type reference.
func New(name, typ string) (*Wrapper, error) {
	if name == "" {
		return nil, fmt.Errorf("argument wrapper name is required")
	}
	if _, err := language.ParseType(name); err != nil {
		return nil, fmt.Errorf("argument wrapper name %q is not a valid identifier", name)
	}
	t, err := language.ParseType(typ)
	if err != nil {
		return nil, fmt.Errorf("argument wrapper: %w", err)
	}
	return &Wrapper{Name: name, Type: t}, nil
}

// Rewrite returns a copy of op whose variable definitions are replaced by
// the wrapper variable and whose first field matching responseName and
// fieldName takes the wrapper variable as its only argument. op itself is
// not modified.
func (w *Wrapper) Rewrite(op *language.OperationDefinition, fieldName, responseName string) (*language.OperationDefinition, error) {
	if len(op.VariableDefinitions) == 0 {
		return nil, fmt.Errorf("wrap arguments of %q: %w", fieldName, ErrNoVariables)
	}
	selections, ok, err := w.rewriteSelections(op.SelectionSet, fieldName, responseName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("wrap arguments of %q: %w", fieldName, ErrNoField)
	}

	out := *op
	out.VariableDefinitions = language.VariableDefinitionList{{
		Variable: w.Name,
		Type:     w.Type,
		Position: op.VariableDefinitions[0].Position,
	}}
	out.SelectionSet = selections
	return &out, nil
}

// rewriteSelections copies only the selection sets on the way to the target
// field.
func (w *Wrapper) rewriteSelections(set language.SelectionSet, fieldName, responseName string) (language.SelectionSet, bool, error) {
	for i, sel := range set {
		var (
			replaced language.Selection
			found    bool
			err      error
		)
		switch s := sel.(type) {
		case *language.Field:
			replaced, found, err = w.rewriteField(s, fieldName, responseName)
		case *language.InlineFragment:
			var inner language.SelectionSet
			inner, found, err = w.rewriteSelections(s.SelectionSet, fieldName, responseName)
			if found {
				frag := *s
				frag.SelectionSet = inner
				replaced = &frag
			}
		}
		if err != nil {
			return nil, false, err
		}
		if found {
			out := make(language.SelectionSet, len(set))
			copy(out, set)
			out[i] = replaced
			return out, true, nil
		}
	}
	return set, false, nil
}

func (w *Wrapper) rewriteField(f *language.Field, fieldName, responseName string) (language.Selection, bool, error) {
	if f.Name == fieldName && alias(f) == responseName {
		if len(f.Arguments) == 0 {
			return nil, false, fmt.Errorf("wrap arguments of %q: %w", fieldName, ErrNoArguments)
		}
		field := *f
		field.Arguments = language.ArgumentList{{
			Name:     w.Name,
			Value:    &language.Value{Kind: language.Variable, Raw: w.Name, Position: f.Arguments[0].Position},
			Position: f.Arguments[0].Position,
		}}
		return &field, true, nil
	}
	inner, found, err := w.rewriteSelections(f.SelectionSet, fieldName, responseName)
	if err != nil || !found {
		return nil, false, err
	}
	field := *f
	field.SelectionSet = inner
	return &field, true, nil
}

// Variables nests vars under the wrapper name.
func (w *Wrapper) Variables(vars any) map[string]any {
	if m, ok := vars.(map[string]any); vars == nil || (ok && m == nil) {
		vars = map[string]any{}
	}
	return map[string]any{w.Name: vars}
}

// Unwrap reads a field value out of a graph response data object. With a
// wrapper the value is looked up under data[wrapper]. The response name is
// tried before the field name.
func Unwrap(data any, w *Wrapper, fieldName, responseName string) any {
	m, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	if w != nil {
		if m, ok = m[w.Name].(map[string]any); !ok {
			return nil
		}
	}
	if v, ok := m[responseName]; ok && responseName != "" {
		return v
	}
	return m[fieldName]
}

func alias(f *language.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}
