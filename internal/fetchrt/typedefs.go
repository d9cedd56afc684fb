package fetchrt

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CommonTypeDefs declares the scalar shared by every directive. It must be
// included once per composed schema.
const CommonTypeDefs = "scalar JSON\n"

// TypeDefs returns the schema text declaring the factory's directive and
// its input types.
func (f *Factory) TypeDefs() string {
	name := f.opts.Name
	prefix := exported(name)
	var b strings.Builder
	if f.opts.API == APIGraph {
		b.WriteString("input " + prefix + "ArgWrapper {\n  name: String!\n  type: String!\n}\n")
		b.WriteString("directive @" + name + "(argwrapper: " + prefix + "ArgWrapper, gqlvariables: String, " +
			"responsekeyformat: JSON, headers: JSON, forwardheaders: [String], contenttype: String, " +
			"resultroot: JSON, errorroot: String) on FIELD_DEFINITION\n")
		return b.String()
	}
	b.WriteString("input " + prefix + "Setter {\n  field: String\n  path: String!\n}\n")
	b.WriteString("directive @" + name + "(path: String!, method: String, headers: JSON, " +
		"setters: [" + prefix + "Setter], resultroot: JSON, errorroot: String, postbody: String, " +
		"forwardheaders: [String], contenttype: String) on FIELD_DEFINITION\n")
	return b.String()
}

func exported(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}
