package executor

import (
	"slices"

	language "github.com/hanpama/fetchgraph/internal/language"
	schema "github.com/hanpama/fetchgraph/internal/schema"
)

// fieldGroup is every field node sharing one response name.
type fieldGroup struct {
	ResponseName string
	Fields       []*language.Field
}

// groupedFields keeps response names in the order they first appear.
type groupedFields struct {
	groups []fieldGroup
	byName map[string]int
}

func (g *groupedFields) add(f *language.Field) {
	name := responseNameOf(f)
	if i, ok := g.byName[name]; ok {
		g.groups[i].Fields = append(g.groups[i].Fields, f)
		return
	}
	g.byName[name] = len(g.groups)
	g.groups = append(g.groups, fieldGroup{ResponseName: name, Fields: []*language.Field{f}})
}

// collectFields flattens selectionSet for objectType, expanding fragments
// whose type condition applies and dropping nodes excluded by @skip or
// @include.
func collectFields(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet) []fieldGroup {
	g := &groupedFields{byName: make(map[string]int)}
	visited := make(map[string]bool)
	var walk func(language.SelectionSet)
	walk = func(set language.SelectionSet) {
		for _, sel := range set {
			switch sel := sel.(type) {
			case *language.Field:
				if included(state, sel.Directives) {
					g.add(sel)
				}
			case *language.InlineFragment:
				if included(state, sel.Directives) && state.typeApplies(objectType, sel.TypeCondition) {
					walk(sel.SelectionSet)
				}
			case *language.FragmentSpread:
				if !included(state, sel.Directives) || visited[sel.Name] {
					continue
				}
				visited[sel.Name] = true
				frag := state.document.Fragments.ForName(sel.Name)
				if frag == nil || !included(state, frag.Directives) || !state.typeApplies(objectType, frag.TypeCondition) {
					continue
				}
				walk(frag.SelectionSet)
			}
		}
	}
	walk(selectionSet)
	return g.groups
}

// typeApplies reports whether a fragment conditioned on typeCondition applies
// to objectType: the names match, objectType implements the interface, or
// it is a member of the union.
func (s *executionState) typeApplies(objectType *schema.Type, typeCondition string) bool {
	if typeCondition == "" || typeCondition == objectType.Name {
		return true
	}
	if slices.Contains(objectType.Interfaces, typeCondition) {
		return true
	}
	condition := s.schema.Types[typeCondition]
	return condition != nil && condition.Admits(objectType.Name)
}

func included(state *executionState, directives language.DirectiveList) bool {
	if d := directives.ForName("skip"); d != nil && directiveFlag(state, d) {
		return false
	}
	if d := directives.ForName("include"); d != nil && !directiveFlag(state, d) {
		return false
	}
	return true
}

// directiveFlag reads the boolean "if" argument of @skip or @include.
// Anything but true reads as false.
func directiveFlag(state *executionState, d *language.Directive) bool {
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false
	}
	b, _ := valueFromAST(state, arg.Value).(bool)
	return b
}

func getFieldDefinition(objectType *schema.Type, fieldName string) *schema.Field {
	return objectType.Field(fieldName)
}
