// Package codec serializes request bodies for the declared content type.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/url"
	"sort"
	"strings"

	"github.com/hanpama/fetchgraph/internal/argtmpl"
)

const (
	JSON      = "application/json"
	Form      = "application/x-www-form-urlencoded"
	Multipart = "multipart/form-data"
)

// Payload is an encoded body and the Content-Type header that must be sent
// with it.
type Payload struct {
	Body        []byte
	ContentType string
}

// MediaType returns the lowercased media type of a Content-Type value
// without parameters.
func MediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// IsText reports whether contentType declares a text/* body.
func IsText(contentType string) bool {
	return strings.HasPrefix(MediaType(contentType), "text/")
}

// Encode serializes body according to contentType. Unknown content types
// pass strings and byte slices through untouched; other values are JSON
// encoded.
func Encode(body any, contentType string) (Payload, error) {
	switch MediaType(contentType) {
	case JSON:
		b, err := json.Marshal(body)
		if err != nil {
			return Payload{}, fmt.Errorf("encode json body: %w", err)
		}
		return Payload{Body: b, ContentType: contentType}, nil
	case Form:
		fields, err := flatten(body)
		if err != nil {
			return Payload{}, fmt.Errorf("encode form body: %w", err)
		}
		values := url.Values{}
		for _, f := range fields {
			values.Set(f.name, f.value)
		}
		return Payload{Body: []byte(values.Encode()), ContentType: contentType}, nil
	case Multipart:
		return encodeMultipart(body)
	}
	return identity(body, contentType)
}

// Passthrough forwards a caller body verbatim.
func Passthrough(body []byte, contentType string) Payload {
	return Payload{Body: body, ContentType: contentType}
}

func encodeMultipart(body any) (Payload, error) {
	fields, err := flatten(body)
	if err != nil {
		return Payload{}, fmt.Errorf("encode multipart body: %w", err)
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return Payload{}, fmt.Errorf("encode multipart field %q: %w", f.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return Payload{}, fmt.Errorf("encode multipart body: %w", err)
	}
	return Payload{Body: buf.Bytes(), ContentType: w.FormDataContentType()}, nil
}

func identity(body any, contentType string) (Payload, error) {
	switch b := body.(type) {
	case nil:
		return Payload{ContentType: contentType}, nil
	case []byte:
		return Payload{Body: b, ContentType: contentType}, nil
	case string:
		return Payload{Body: []byte(b), ContentType: contentType}, nil
	}
	b, err := json.Marshal(body)
	if err != nil {
		return Payload{}, fmt.Errorf("encode body: %w", err)
	}
	return Payload{Body: b, ContentType: contentType}, nil
}

type field struct {
	name  string
	value string
}

// flatten turns an object into sorted name/value pairs. Structured values are
// JSON encoded; null becomes "null".
func flatten(body any) ([]field, error) {
	if body == nil {
		return nil, nil
	}
	m, ok := body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("body must be an object, got %s", argtmpl.KindOf(body))
	}
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]field, 0, len(names))
	for _, name := range names {
		v := m[name]
		switch argtmpl.KindOf(v) {
		case argtmpl.KindScalar:
			out = append(out, field{name, argtmpl.Stringify(v)})
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			out = append(out, field{name, string(b)})
		}
	}
	return out, nil
}
