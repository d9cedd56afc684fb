package reshape

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Segments splits a dotted path with optional bracket indexes
// (a.b[0].c, a["x.y"]) into its components.
func Segments(path string) ([]string, error) {
	var (
		segs []string
		cur  strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			segs = append(segs, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '.':
			flush()
		case '[':
			flush()
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated bracket in path %q", path)
			}
			inner := strings.TrimSpace(path[i+1 : i+end])
			if n := len(inner); n >= 2 && (inner[0] == '"' || inner[0] == '\'') && inner[n-1] == inner[0] {
				inner = inner[1 : n-1]
			}
			if inner == "" {
				return nil, fmt.Errorf("empty bracket in path %q", path)
			}
			segs = append(segs, inner)
			i += end
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return segs, nil
}

// JSONPath converts a dotted path to an escaped gjson/sjson path.
func JSONPath(path string) (string, error) {
	segs, err := Segments(path)
	if err != nil {
		return "", err
	}
	for i, s := range segs {
		segs[i] = gjson.Escape(s)
	}
	return strings.Join(segs, "."), nil
}
