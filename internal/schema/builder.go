package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// Build validates the given SDL sources as one schema and converts it into
// an executable Schema. Extensions are merged into their base definitions.
// Every field keeps the directives applied to it so that a resolver factory
// can bind behavior later; no field is async until a resolver is attached.
func Build(sources ...*ast.Source) (*Schema, error) {
	doc, err := gqlparser.LoadSchema(sources...)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return BuildFromAST(doc)
}

// BuildFromSDL builds a Schema from a single SDL string.
func BuildFromSDL(sdl string) (*Schema, error) {
	return Build(&ast.Source{Name: "schema.graphql", Input: sdl})
}

// BuildFromAST converts a validated gqlparser schema.
func BuildFromAST(doc *ast.Schema) (*Schema, error) {
	s := NewSchema(doc.Description)
	if doc.Query != nil {
		s.SetQueryType(doc.Query.Name)
	}
	if doc.Mutation != nil {
		s.SetMutationType(doc.Mutation.Name)
	}
	if doc.Subscription != nil {
		s.SetSubscriptionType(doc.Subscription.Name)
	}

	names := make([]string, 0, len(doc.Types))
	for name := range doc.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		def := doc.Types[name]
		if strings.HasPrefix(def.Name, "__") {
			continue
		}
		t, err := buildType(def, doc)
		if err != nil {
			return nil, err
		}
		s.AddType(t)
	}

	for _, dir := range doc.Directives {
		d, err := buildDirective(dir)
		if err != nil {
			return nil, err
		}
		s.AddDirective(d)
	}
	return s, nil
}

func buildType(def *ast.Definition, doc *ast.Schema) (*Type, error) {
	var t *Type
	switch def.Kind {
	case ast.Object:
		t = NewType(def.Name, TypeKindObject, def.Description)
	case ast.Interface:
		t = NewType(def.Name, TypeKindInterface, def.Description)
		for _, impl := range doc.PossibleTypes[def.Name] {
			t.AddPossibleType(impl.Name)
		}
	case ast.Union:
		t = NewType(def.Name, TypeKindUnion, def.Description)
		for _, name := range def.Types {
			t.AddPossibleType(name)
		}
		return t, nil
	case ast.Enum:
		t = NewType(def.Name, TypeKindEnum, def.Description)
		for _, v := range def.EnumValues {
			ev := NewEnumValue(v.Name, v.Description)
			if reason, ok := deprecation(v.Directives); ok {
				ev.Deprecate(reason)
			}
			t.AddEnumValue(ev)
		}
		return t, nil
	case ast.Scalar:
		t = NewType(def.Name, TypeKindScalar, def.Description)
		if d := def.Directives.ForName("specifiedBy"); d != nil {
			if arg := d.Arguments.ForName("url"); arg != nil {
				t.SetSpecifiedByURL(arg.Value.Raw)
			}
		}
		return t, nil
	case ast.InputObject:
		t = NewType(def.Name, TypeKindInputObject, def.Description)
		t.SetOneOf(def.Directives.ForName("oneOf") != nil)
		for _, f := range def.Fields {
			in, err := buildInputValue(f.Name, f.Description, f.Type, f.DefaultValue, f.Directives)
			if err != nil {
				return nil, err
			}
			t.AddInputField(in)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported definition kind %s for %s", def.Kind, def.Name)
	}

	for _, name := range def.Interfaces {
		t.AddInterface(name)
	}
	for _, fd := range def.Fields {
		if strings.HasPrefix(fd.Name, "__") {
			continue
		}
		f, err := buildField(fd)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", def.Name, fd.Name, err)
		}
		t.AddField(f)
	}
	return t, nil
}

func buildField(fd *ast.FieldDefinition) (*Field, error) {
	f := NewField(fd.Name, fd.Description, buildTypeRef(fd.Type))
	if reason, ok := deprecation(fd.Directives); ok {
		f.Deprecate(reason)
	}
	for _, arg := range fd.Arguments {
		in, err := buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives)
		if err != nil {
			return nil, err
		}
		f.AddArgument(in)
	}
	for _, d := range fd.Directives {
		if d.Name == "deprecated" {
			continue
		}
		applied, err := buildAppliedDirective(d)
		if err != nil {
			return nil, err
		}
		f.AddDirective(applied)
	}
	return f, nil
}

func buildAppliedDirective(d *ast.Directive) (*AppliedDirective, error) {
	out := &AppliedDirective{Name: d.Name, Arguments: make(map[string]any, len(d.Arguments))}
	if d.Position != nil {
		out.Line = d.Position.Line
		out.Column = d.Position.Column
		if d.Position.Src != nil {
			out.File = d.Position.Src.Name
		}
	}
	for _, arg := range d.Arguments {
		v, err := arg.Value.Value(nil)
		if err != nil {
			return nil, fmt.Errorf("@%s(%s): %w", d.Name, arg.Name, err)
		}
		out.Arguments[arg.Name] = v
	}
	return out, nil
}

func buildInputValue(name, description string, typ *ast.Type, def *ast.Value, dirs ast.DirectiveList) (*InputValue, error) {
	in := NewInputValue(name, description, buildTypeRef(typ))
	if def != nil {
		v, err := def.Value(nil)
		if err != nil {
			return nil, fmt.Errorf("default value of %s: %w", name, err)
		}
		in.SetDefault(v)
	}
	if reason, ok := deprecation(dirs); ok {
		in.Deprecate(reason)
	}
	return in, nil
}

func buildDirective(dir *ast.DirectiveDefinition) (*Directive, error) {
	d := NewDirective(dir.Name, dir.Description).SetRepeatable(dir.IsRepeatable)
	for _, loc := range dir.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, arg := range dir.Arguments {
		in, err := buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives)
		if err != nil {
			return nil, err
		}
		d.AddArgument(in)
	}
	return d, nil
}

func buildTypeRef(t *ast.Type) *TypeRef {
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(buildTypeRef(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		return NonNullType(ref)
	}
	return ref
}

func deprecation(dirs ast.DirectiveList) (string, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	reason := "No longer supported"
	if arg := d.Arguments.ForName("reason"); arg != nil {
		reason = arg.Value.Raw
	}
	return reason, true
}
