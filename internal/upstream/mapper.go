package upstream

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/hanpama/fetchgraph/internal/codec"
	"github.com/hanpama/fetchgraph/internal/reshape"
)

// Mapper classifies failed downstream responses for one field.
type Mapper struct {
	factory   ErrorFactory
	errorRoot string // gjson path, empty for the whole payload
}

// NewMapper compiles errorRoot. A nil factory means DefaultFactory.
func NewMapper(factory ErrorFactory, errorRoot string) (*Mapper, error) {
	if factory == nil {
		factory = DefaultFactory
	}
	root, err := reshape.JSONPath(errorRoot)
	if err != nil {
		return nil, fmt.Errorf("error root: %w", err)
	}
	return &Mapper{factory: factory, errorRoot: root}, nil
}

// OK reports whether status is a success status.
func OK(status int) bool { return status >= 200 && status < 300 }

// FromResponse maps a non-2xx response. Text bodies become
// {message: <text>}; JSON bodies are narrowed to the error root. A body that
// cannot be parsed yields the factory error with a *PayloadParseError
// payload.
func (m *Mapper) FromResponse(status int, header http.Header, body []byte) error {
	contentType := header.Get("Content-Type")
	if codec.IsText(contentType) {
		return m.factory(statusText(status), status, map[string]any{"message": string(body)})
	}
	trimmed := bytes.TrimSpace(body)
	if !gjson.ValidBytes(trimmed) || len(trimmed) == 0 {
		return m.ParseFailure(status, contentType, reshape.ErrInvalidJSON)
	}

	selected := trimmed
	if m.errorRoot != "" {
		res := gjson.GetBytes(trimmed, m.errorRoot)
		if !res.Exists() || res.Type == gjson.Null {
			return m.factory(statusText(status), status, map[string]any{})
		}
		selected = []byte(res.Raw)
	}
	payload, err := reshape.Decode(selected)
	if err != nil {
		return m.ParseFailure(status, contentType, err)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return m.factory(statusText(status), status, payload)
}

// FromGraph maps a graph response carrying an errors array.
func (m *Mapper) FromGraph(status int, errs any) error {
	return m.factory(statusText(status), status, errs)
}

// ParseFailure maps a body that could not be parsed.
func (m *Mapper) ParseFailure(status int, contentType string, err error) error {
	return m.factory(statusText(status), status, &PayloadParseError{ContentType: contentType, Err: err})
}

func statusText(status int) string { return http.StatusText(status) }
