package introspection

import (
	schema "github.com/hanpama/fetchgraph/internal/schema"
)

var (
	str      = schema.NamedType("String")
	boolean  = schema.NamedType("Boolean")
	nonNull  = schema.NonNullType
	listOf   = func(name string) *schema.TypeRef { return nonNull(schema.ListType(nonNull(schema.NamedType(name)))) }
	optional = func(name string) *schema.TypeRef { return schema.ListType(nonNull(schema.NamedType(name))) }
)

// extend returns a shallow copy of sch with the meta types registered and
// __schema and __type added to a copy of the query root. sch is not modified.
func extend(sch *schema.Schema) *schema.Schema {
	out := schema.NewSchema(sch.Description).
		SetQueryType(sch.QueryType).
		SetMutationType(sch.MutationType).
		SetSubscriptionType(sch.SubscriptionType)
	for _, t := range sch.Types {
		out.AddType(t)
	}
	for _, d := range sch.Directives {
		out.AddDirective(d)
	}
	for _, t := range metaTypes() {
		out.AddType(t)
	}

	query := sch.GetQueryType()
	if query == nil {
		return out
	}
	root := *query
	root.Fields = append(append([]*schema.Field(nil), query.Fields...),
		schema.NewField("__schema", "Access the current type schema of this server.", nonNull(schema.NamedType("__Schema"))),
		schema.NewField("__type", "Request the type information of a single type.", schema.NamedType("__Type")).
			AddArgument(schema.NewInputValue("name", "", nonNull(str))),
	)
	out.AddType(&root)
	return out
}

func includeDeprecated() *schema.InputValue {
	return schema.NewInputValue("includeDeprecated", "", boolean).SetDefault(false)
}

func metaTypes() []*schema.Type {
	obj := func(name, description string) *schema.Type {
		return schema.NewType(name, schema.TypeKindObject, description)
	}
	field := func(name string, typ *schema.TypeRef) *schema.Field {
		return schema.NewField(name, "", typ)
	}

	schemaType := obj("__Schema", "A GraphQL Schema defines the capabilities of a GraphQL server.").
		AddField(field("description", str)).
		AddField(field("types", listOf("__Type"))).
		AddField(field("queryType", nonNull(schema.NamedType("__Type")))).
		AddField(field("mutationType", schema.NamedType("__Type"))).
		AddField(field("subscriptionType", schema.NamedType("__Type"))).
		AddField(field("directives", listOf("__Directive")))

	typeType := obj("__Type", "The fundamental unit of any GraphQL Schema is the type.").
		AddField(field("kind", nonNull(schema.NamedType("__TypeKind")))).
		AddField(field("name", str)).
		AddField(field("description", str)).
		AddField(field("specifiedByURL", str)).
		AddField(field("fields", optional("__Field")).AddArgument(includeDeprecated())).
		AddField(field("interfaces", optional("__Type"))).
		AddField(field("possibleTypes", optional("__Type"))).
		AddField(field("enumValues", optional("__EnumValue")).AddArgument(includeDeprecated())).
		AddField(field("inputFields", optional("__InputValue")).AddArgument(includeDeprecated())).
		AddField(field("ofType", schema.NamedType("__Type"))).
		AddField(field("isOneOf", boolean))

	fieldType := obj("__Field", "").
		AddField(field("name", nonNull(str))).
		AddField(field("description", str)).
		AddField(field("args", listOf("__InputValue")).AddArgument(includeDeprecated())).
		AddField(field("type", nonNull(schema.NamedType("__Type")))).
		AddField(field("isDeprecated", nonNull(boolean))).
		AddField(field("deprecationReason", str))

	inputValueType := obj("__InputValue", "").
		AddField(field("name", nonNull(str))).
		AddField(field("description", str)).
		AddField(field("type", nonNull(schema.NamedType("__Type")))).
		AddField(field("defaultValue", str)).
		AddField(field("isDeprecated", nonNull(boolean))).
		AddField(field("deprecationReason", str))

	enumValueType := obj("__EnumValue", "").
		AddField(field("name", nonNull(str))).
		AddField(field("description", str)).
		AddField(field("isDeprecated", nonNull(boolean))).
		AddField(field("deprecationReason", str))

	directiveType := obj("__Directive", "").
		AddField(field("name", nonNull(str))).
		AddField(field("description", str)).
		AddField(field("isRepeatable", nonNull(boolean))).
		AddField(field("locations", listOf("__DirectiveLocation"))).
		AddField(field("args", listOf("__InputValue")).AddArgument(includeDeprecated()))

	return []*schema.Type{
		schemaType, typeType, fieldType, inputValueType, enumValueType, directiveType,
		enum("__TypeKind", "SCALAR", "OBJECT", "INTERFACE", "UNION", "ENUM", "INPUT_OBJECT", "LIST", "NON_NULL"),
		enum("__DirectiveLocation",
			"QUERY", "MUTATION", "SUBSCRIPTION", "FIELD", "FRAGMENT_DEFINITION", "FRAGMENT_SPREAD",
			"INLINE_FRAGMENT", "VARIABLE_DEFINITION", "SCHEMA", "SCALAR", "OBJECT", "FIELD_DEFINITION",
			"ARGUMENT_DEFINITION", "INTERFACE", "UNION", "ENUM", "ENUM_VALUE", "INPUT_OBJECT",
			"INPUT_FIELD_DEFINITION"),
	}
}

func enum(name string, values ...string) *schema.Type {
	t := schema.NewType(name, schema.TypeKindEnum, "")
	for _, v := range values {
		t.AddEnumValue(schema.NewEnumValue(v, ""))
	}
	return t
}
