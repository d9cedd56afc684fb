// Package reqid carries a request ID through the context.
package reqid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Header is the HTTP header that carries the request ID.
const Header = "X-Request-Id"

type key struct{}

// NewContext returns a copy of parent with a new random request ID stored.
func NewContext(parent context.Context) (context.Context, string) {
	return WithID(parent, uuid.NewString())
}

// WithID stores id in a copy of parent.
func WithID(parent context.Context, id string) (context.Context, string) {
	return context.WithValue(parent, key{}, id), id
}

// FromRequest reuses the caller's request ID when present and generates one
// otherwise.
func FromRequest(r *http.Request) (context.Context, string) {
	if id := r.Header.Get(Header); id != "" {
		return WithID(r.Context(), id)
	}
	return NewContext(r.Context())
}

// FromContext extracts the request ID from ctx.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}
