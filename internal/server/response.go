package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	executor "github.com/hanpama/fetchgraph/internal/executor"
	reqid "github.com/hanpama/fetchgraph/internal/reqid"
)

// response is the serialized GraphQL response. Data is always present,
// possibly null; errors only when there are any.
type response struct {
	Data   any             `json:"data"`
	Errors []responseError `json:"errors,omitempty"`
}

type responseError struct {
	Message    string         `json:"message"`
	Path       executor.Path  `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func failure(message string) response {
	return response{Errors: []responseError{{Message: message}}}
}

func format(res *executor.ExecutionResult) response {
	out := response{Data: res.Data}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, responseError{Message: e.Message, Path: e.Path, Extensions: e.Extensions})
	}
	return out
}

func (h *Handler) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if h.opt.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		h.opt.Logger.Warn("write response", zap.Error(err))
	}
}

// CORSOptions lists the origins allowed to call the endpoint; "*" allows any.
type CORSOptions struct {
	AllowedOrigins []string
}

type corsPolicy struct {
	wildcard bool
	origins  map[string]bool
}

func newCORSPolicy(o CORSOptions) corsPolicy {
	p := corsPolicy{origins: make(map[string]bool, len(o.AllowedOrigins))}
	for _, origin := range o.AllowedOrigins {
		if origin == "*" {
			p.wildcard = true
		}
		p.origins[origin] = true
	}
	return p
}

func (p corsPolicy) apply(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" || !(p.wildcard || p.origins[origin]) {
		return
	}
	hdr := w.Header()
	if p.wildcard {
		hdr.Set("Access-Control-Allow-Origin", "*")
	} else {
		hdr.Set("Access-Control-Allow-Origin", origin)
		hdr.Add("Vary", "Origin")
	}
	hdr.Set("Access-Control-Expose-Headers", reqid.Header)
	if r.Method != http.MethodOptions {
		return
	}
	if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
		hdr.Set("Access-Control-Allow-Headers", requested)
	}
	hdr.Set("Access-Control-Allow-Methods", strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ","))
}
