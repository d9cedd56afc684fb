// Package upstream maps failed downstream calls onto a single application
// error type.
package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorPayload is the normalized shape every mapped failure carries.
type ErrorPayload struct {
	StatusText string
	Status     int
	Errors     any
}

// ErrorFactory builds the application error for a failed downstream call.
type ErrorFactory func(statusText string, status int, payload any) error

// Error is the error produced by DefaultFactory.
type Error struct {
	ErrorPayload
}

// DefaultFactory produces *Error values.
func DefaultFactory(statusText string, status int, payload any) error {
	return &Error{ErrorPayload{StatusText: statusText, Status: status, Errors: payload}}
}

func (e *Error) Error() string {
	if e.StatusText != "" {
		return e.StatusText
	}
	if text := http.StatusText(e.Status); text != "" {
		return text
	}
	return "upstream error"
}

// Unwrap exposes a payload parse failure carried as the payload.
func (e *Error) Unwrap() error {
	err, _ := e.Errors.(error)
	return err
}

// Extensions is copied into the GraphQL error extensions.
func (e *Error) Extensions() map[string]any {
	payload := e.Errors
	if err, ok := payload.(error); ok {
		payload = map[string]any{"message": err.Error()}
	}
	return map[string]any{
		"status":     e.Status,
		"statusText": e.StatusText,
		"errors":     payload,
	}
}

// TransportError is a connection level failure that happened before any
// status was received.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PayloadParseError reports a body that could not be parsed as the
// declared content type.
type PayloadParseError struct {
	ContentType string
	Err         error
}

func (e *PayloadParseError) Error() string {
	if e.ContentType == "" {
		return fmt.Sprintf("parse payload: %v", e.Err)
	}
	return fmt.Sprintf("parse %s payload: %v", e.ContentType, e.Err)
}

func (e *PayloadParseError) Unwrap() error { return e.Err }

// IsTransport reports whether err is, or wraps, a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
