package schema

import "slices"

// Schema is the executable form of the served SDL. Types and Directives are
// keyed by name; root types are referenced by name and may be absent.
type Schema struct {
	Description      string
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type
	Directives       map[string]*Directive
}

func (s *Schema) GetQueryType() *Type        { return s.Types[s.QueryType] }
func (s *Schema) GetMutationType() *Type     { return s.Types[s.MutationType] }
func (s *Schema) GetSubscriptionType() *Type { return s.Types[s.SubscriptionType] }

type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// Type is a named type. Which of the member slices are populated depends on
// Kind: Fields and Interfaces for objects and interfaces, PossibleTypes for
// interfaces and unions, EnumValues for enums, InputFields for input objects.
type Type struct {
	Name           string
	Kind           TypeKind
	Description    string
	Fields         []*Field
	Interfaces     []string
	PossibleTypes  []string
	EnumValues     []*EnumValue
	InputFields    []*InputValue
	SpecifiedByURL *string
	OneOf          bool
}

// Field returns the field with the given name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// InputField returns the input field with the given name, or nil.
func (t *Type) InputField(name string) *InputValue {
	for _, f := range t.InputFields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (t *Type) IsAbstract() bool {
	return t.Kind == TypeKindInterface || t.Kind == TypeKindUnion
}

// Admits reports whether an object of type objectType satisfies t, either by
// being t or by being one of its possible types.
func (t *Type) Admits(objectType string) bool {
	return t.Name == objectType || (t.IsAbstract() && slices.Contains(t.PossibleTypes, objectType))
}

type Field struct {
	Name              string
	Description       string
	Type              *TypeRef
	Arguments         []*InputValue
	Async             bool
	IsDeprecated      bool
	DeprecationReason string

	// Directives applied to the field definition in SDL, in source order.
	Directives []*AppliedDirective
	// Resolver is set for fields whose value comes from a downstream call.
	// Such fields are also marked Async.
	Resolver Resolver `json:"-"`
}

// Directive returns the first applied directive with the given name.
func (f *Field) Directive(name string) *AppliedDirective {
	for _, d := range f.Directives {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// AppliedDirective is a directive usage on a field definition with its
// arguments converted to Go values and its source position.
type AppliedDirective struct {
	Name      string
	Arguments map[string]any
	File      string `json:",omitempty"`
	Line      int    `json:",omitempty"`
	Column    int    `json:",omitempty"`
}

type InputValue struct {
	Name              string
	Description       string
	Type              *TypeRef
	DefaultValue      any
	IsDeprecated      bool
	DeprecationReason string
}

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

// TypeRef is a possibly wrapped reference to a named type. Wrappers carry
// OfType; named references carry Named.
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef
	Named  string
}

func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }

func (t *TypeRef) IsNonNull() bool { return t != nil && t.Kind == TypeRefKindNonNull }

// IsList reports whether t is a list, looking through one Non-Null wrapper.
func (t *TypeRef) IsList() bool {
	if t.IsNonNull() {
		t = t.OfType
	}
	return t != nil && t.Kind == TypeRefKindList
}

// Unwrap strips one wrapper. Named references are returned as is.
func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNamed {
		return t
	}
	return t.OfType
}

// GetNamedType returns the name of the innermost named type.
func (t *TypeRef) GetNamedType() string {
	for t != nil && t.Named == "" {
		t = t.OfType
	}
	if t == nil {
		return ""
	}
	return t.Named
}

// String renders t in SDL notation, e.g. [String!]!.
func (t *TypeRef) String() string {
	switch {
	case t == nil:
		return ""
	case t.Kind == TypeRefKindNonNull:
		return t.OfType.String() + "!"
	case t.Kind == TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	default:
		return t.Named
	}
}

func IsNonNull(t *TypeRef) bool      { return t.IsNonNull() }
func IsList(t *TypeRef) bool         { return t != nil && t.IsList() }
func Unwrap(t *TypeRef) *TypeRef     { return t.Unwrap() }
func GetNamedType(t *TypeRef) string { return t.GetNamedType() }
