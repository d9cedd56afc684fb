package language

import (
	"bytes"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"
)

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseType parses a type reference such as "ACSession", "[ID!]" or "Filter!".
func ParseType(source string) (*Type, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: "query($t: " + source + ") { __typename }"})
	if err != nil {
		return nil, fmt.Errorf("invalid type %q: %w", source, err)
	}
	if len(doc.Operations) != 1 || len(doc.Operations[0].VariableDefinitions) != 1 {
		return nil, fmt.Errorf("invalid type %q", source)
	}
	return doc.Operations[0].VariableDefinitions[0].Type, nil
}

// PrintOperation renders an operation and the fragments it may spread as
// query text, indented with two spaces.
func PrintOperation(op *OperationDefinition, fragments FragmentDefinitionList) string {
	doc := &ast.QueryDocument{
		Operations: ast.OperationList{op},
		Fragments:  fragments,
	}
	var buf bytes.Buffer
	formatter.NewFormatter(&buf, formatter.WithIndent("  ")).FormatQueryDocument(doc)
	return buf.String()
}
