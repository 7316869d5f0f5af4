package domain

import (
	"fmt"
	"strings"
)

// ConfigurationError means a required credential or identifier is missing.
// It is raised before any network call.
type ConfigurationError struct {
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Msg)
}

// EndpointExhaustedError means every candidate endpoint failed.
type EndpointExhaustedError struct {
	Attempted []string
	Cause     error
}

func (e *EndpointExhaustedError) Error() string {
	msg := fmt.Sprintf("all %d endpoints failed [%s]", len(e.Attempted), strings.Join(e.Attempted, ", "))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *EndpointExhaustedError) Unwrap() error { return e.Cause }

// HTTPStatusError is a non-2xx answer from a single endpoint.
type HTTPStatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.URL, e.Status, e.Body)
}

// ValidationError is a malformed order intent. It only affects that order.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// PayloadShapeError means a single record cannot be used; callers skip it.
type PayloadShapeError struct {
	Record string
	Msg    string
}

func (e *PayloadShapeError) Error() string {
	if e.Record == "" {
		return "payload: " + e.Msg
	}
	return fmt.Sprintf("payload %s: %s", e.Record, e.Msg)
}
