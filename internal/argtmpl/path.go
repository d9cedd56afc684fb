package argtmpl

import "strings"

// RenderPath replaces every $name placeholder in path with the stringified
// value of args[name]. Names extend over letters, digits and underscores, so
// $id never matches inside $identifier. Values are inserted as given, without
// escaping. Object, list and null values render as the empty string.
// Placeholders without a matching argument are left in place.
func RenderPath(path string, args map[string]any) string {
	if !strings.Contains(path, "$") {
		return path
	}
	var b strings.Builder
	b.Grow(len(path))
	for i := 0; i < len(path); {
		c := path[i]
		if c != '$' {
			b.WriteByte(c)
			i++
			continue
		}
		j := i + 1
		for j < len(path) && isNameByte(path[j]) {
			j++
		}
		name := path[i+1 : j]
		v, ok := args[name]
		if name == "" || !ok {
			b.WriteString(path[i:j])
		} else if KindOf(v) == KindScalar {
			b.WriteString(Stringify(v))
		}
		i = j
	}
	return b.String()
}

func isNameByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// JoinURL joins a base URL and a path with exactly one slash between them.
func JoinURL(base, path string) string {
	if base == "" {
		return path
	}
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
