package argtmpl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"text/template/parse"
)

// Body is a compiled body template. The template is executed with the
// argument map as its data, so {{ .name }} reads an argument, and the output
// is parsed as JSON.
type Body struct {
	source string
	tmpl   *template.Template
}

var funcs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
	"text": text,
}

// text prints an action's value the way the default printer does, except
// that null and absent values print as nothing.
func text(v any) string {
	if KindOf(v) == KindNull {
		return ""
	}
	return fmt.Sprint(v)
}

// blankNulls pipes the value of every printing action through text.
func blankNulls(tree *parse.Tree, node parse.Node) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			blankNulls(tree, c)
		}
	case *parse.ActionNode:
		if len(n.Pipe.Decl) > 0 {
			return
		}
		ident := parse.NewIdentifier("text").SetTree(tree).SetPos(n.Pos)
		n.Pipe.Cmds = append(n.Pipe.Cmds, &parse.CommandNode{NodeType: parse.NodeCommand, Pos: n.Pos, Args: []parse.Node{ident}})
	case *parse.IfNode:
		blankNulls(tree, n.List)
		blankNulls(tree, n.ElseList)
	case *parse.RangeNode:
		blankNulls(tree, n.List)
		blankNulls(tree, n.ElseList)
	case *parse.WithNode:
		blankNulls(tree, n.List)
		blankNulls(tree, n.ElseList)
	}
}

// ParseBody compiles a body template.
func ParseBody(name, source string) (*Body, error) {
	t, err := template.New(name).Funcs(funcs).Option("missingkey=zero").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse body template: %w", err)
	}
	for _, tt := range t.Templates() {
		if tt.Tree != nil {
			blankNulls(tt.Tree, tt.Tree.Root)
		}
	}
	return &Body{source: source, tmpl: t}, nil
}

func (b *Body) String() string { return b.source }

// Render executes the template against args and decodes the output.
func (b *Body) Render(args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, args); err != nil {
		return nil, fmt.Errorf("render body template: %w", err)
	}
	rendered := buf.String()
	dec := json.NewDecoder(strings.NewReader(rendered))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode rendered body %q: %w", rendered, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode rendered body: trailing data after JSON value")
	}
	return out, nil
}

// AutoBody returns a shallow copy of args, used when no template is given.
func AutoBody(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}
