package fetchrt

import (
	"net/http"
	"strings"

	"github.com/hanpama/fetchgraph/internal/argtmpl"
	"github.com/hanpama/fetchgraph/internal/schema"
)

var methods = map[string]bool{
	http.MethodGet:    true,
	http.MethodHead:   true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// directiveArgs reads typed values out of applied directive arguments and
// collects a violation for every malformed one.
type directiveArgs struct {
	d          *schema.AppliedDirective
	coord      string
	violations ConfigurationError
}

func (a *directiveArgs) fail(format string, args ...any) {
	a.violations = append(a.violations, violationAt(a.d, a.coord, format, args...))
}

func (a *directiveArgs) has(name string) bool {
	v, ok := a.d.Arguments[name]
	return ok && v != nil
}

func (a *directiveArgs) raw(name string) any { return a.d.Arguments[name] }

func (a *directiveArgs) str(name, def string) string {
	v, ok := a.d.Arguments[name]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		a.fail("argument %q must be a string", name)
		return def
	}
	return s
}

func (a *directiveArgs) strList(name string) []string {
	v, ok := a.d.Arguments[name]
	if !ok || v == nil {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		if s, isString := v.(string); isString {
			return []string{s}
		}
		a.fail("argument %q must be a list of strings", name)
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			a.fail("argument %q must be a list of strings", name)
			return nil
		}
		out = append(out, s)
	}
	return out
}

// headerMap reads a JSON object of header values. Scalars are stringified.
func (a *directiveArgs) headerMap(name string) map[string]string {
	v, ok := a.d.Arguments[name]
	if !ok || v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		a.fail("argument %q must be an object", name)
		return nil
	}
	out := make(map[string]string, len(m))
	for k, hv := range m {
		if argtmpl.KindOf(hv) != argtmpl.KindScalar {
			a.fail("header %q must be a scalar value", k)
			continue
		}
		out[k] = argtmpl.Stringify(hv)
	}
	return out
}

func (a *directiveArgs) method() string {
	m := strings.ToUpper(a.str("method", http.MethodGet))
	if !methods[m] {
		a.fail("unsupported method %q", m)
		return http.MethodGet
	}
	return m
}

func (a *directiveArgs) body(name string) *argtmpl.Body {
	src := a.str(name, "")
	if src == "" {
		return nil
	}
	b, err := argtmpl.ParseBody(a.coord+"."+name, src)
	if err != nil {
		a.fail("%v", err)
		return nil
	}
	return b
}
