// Package events declares the events published on the process event bus.
package events

import (
	"net/http"
	"time"
)

// RequestReceived is published when the GraphQL endpoint accepts a request.
type RequestReceived struct {
	Request   *http.Request
	RequestID string
}

// RequestServed is published after the endpoint wrote its response.
type RequestServed struct {
	Request   *http.Request
	RequestID string
	Status    int
	Duration  time.Duration
}

// OperationStart is published before an operation is executed.
type OperationStart struct {
	Query         string
	OperationName string
	OperationType string
}

// OperationFinish is published after an operation was executed.
type OperationFinish struct {
	OperationName string
	OperationType string
	Errors        int
	Duration      time.Duration
}

// DownstreamStart is published before a downstream call. Call is unique per
// process and pairs the start with its finish event.
type DownstreamStart struct {
	Call      uint64
	Directive string
	Field     string
	Method    string
	URL       string
}

// DownstreamFinish is published after a downstream call. Status is zero when
// the call failed before a response arrived.
type DownstreamFinish struct {
	Call      uint64
	Directive string
	Field     string
	Method    string
	URL       string
	Status    int
	Err       error
	Duration  time.Duration
}
