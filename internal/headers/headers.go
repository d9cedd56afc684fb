// Package headers computes the headers sent to downstream services and the
// downstream response headers handed back to the caller.
package headers

import (
	"net/http"
	"slices"
	"strings"
)

// DefaultResponseHeaders lists downstream response headers propagated to the
// caller when no explicit allow-list is configured.
var DefaultResponseHeaders = []string{
	"set-cookie",
	"x-request-id",
	"x-correlation-id",
	"x-trace-id",
	"x-content-type-options",
	"x-ua-compatible",
	"x-xss-protection",
	"x-csrf-token",
}

// Policy is the resolved outbound header configuration of one field.
// It is immutable once built and safe for concurrent use.
type Policy struct {
	static  http.Header
	forward map[string]struct{}
}

// NewPolicy merges Content-Type, the global headers and the field headers in
// that order, later sets overriding earlier ones. The forward lists are
// unioned and compared case-insensitively.
func NewPolicy(contentType string, global, field map[string]string, globalForward, fieldForward []string) *Policy {
	p := &Policy{static: http.Header{}, forward: map[string]struct{}{}}
	if contentType != "" {
		p.static.Set("Content-Type", contentType)
	}
	for _, set := range []map[string]string{global, field} {
		for k, v := range set {
			p.static.Set(k, v)
		}
	}
	for _, list := range [][]string{globalForward, fieldForward} {
		for _, name := range list {
			p.forward[strings.ToLower(name)] = struct{}{}
		}
	}
	return p
}

// Forwards reports whether an inbound header of the given name is passed on.
func (p *Policy) Forwards(name string) bool {
	_, ok := p.forward[strings.ToLower(name)]
	return ok
}

// ForwardList returns the lowercased forward allow-list in sorted order.
func (p *Policy) ForwardList() []string {
	out := make([]string, 0, len(p.forward))
	for name := range p.forward {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Outbound returns a fresh header set for one downstream call. Allow-listed
// inbound headers override static ones of the same name.
func (p *Policy) Outbound(inbound http.Header) http.Header {
	out := p.static.Clone()
	for name, values := range inbound {
		if !p.Forwards(name) || len(values) == 0 {
			continue
		}
		out[http.CanonicalHeaderKey(name)] = slices.Clone(values)
	}
	return out
}

// WithContentType returns a copy of h whose Content-Type is ct.
func WithContentType(h http.Header, ct string) http.Header {
	out := h.Clone()
	if out == nil {
		out = http.Header{}
	}
	if ct == "" {
		out.Del("Content-Type")
	} else {
		out.Set("Content-Type", ct)
	}
	return out
}

// Propagate copies the allow-listed headers present in src onto dst.
// Values already present on dst are not duplicated.
func Propagate(dst, src http.Header, allow []string) {
	if dst == nil {
		return
	}
	for _, name := range allow {
		values := src.Values(name)
		if len(values) == 0 {
			continue
		}
		existing := dst.Values(name)
		for _, v := range values {
			if !slices.Contains(existing, v) {
				dst.Add(name, v)
			}
		}
	}
}
