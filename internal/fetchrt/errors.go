package fetchrt

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/hanpama/fetchgraph/internal/schema"
)

// Violation is one problem found in directive configuration.
type Violation struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ConfigurationError lists malformed directive configurations. Transform
// returns it before any request runs; a resolver returns it when an
// operation cannot be rewritten for the downstream service.
type ConfigurationError []*Violation

func (e ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration errors found:\n")
	for _, v := range e {
		b.WriteString("- " + v.Message)
		if v.File != "" {
			fmt.Fprintf(&b, " %s:%d:%d", v.File, v.Line, v.Column)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (e ConfigurationError) sort() {
	slices.SortStableFunc(e, func(a, b *Violation) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Column, b.Column),
			cmp.Compare(a.Message, b.Message),
		)
	})
}

func violationAt(d *schema.AppliedDirective, coord, format string, args ...any) *Violation {
	v := &Violation{Message: "@" + d.Name + " on " + coord + ": " + fmt.Sprintf(format, args...)}
	v.File, v.Line, v.Column = d.File, d.Line, d.Column
	return v
}
