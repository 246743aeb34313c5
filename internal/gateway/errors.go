// Comercia - Headless Storefront Client and Admin Companion
// Copyright 2026 A. Valdera (avaldera)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avaldera/comercia

package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Gateway error taxonomy. The gateway never swallows errors: every failure
// is normalized into one of these shapes and returned to the caller.
var (
	// ErrNetworkUnavailable indicates the backend could not be reached at all.
	ErrNetworkUnavailable = errors.New("backend unreachable")

	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("request timed out")
)

// APIError is returned when the backend responded with a non-2xx status.
type APIError struct {
	// Status is the HTTP status code.
	Status int

	// Message is the human-readable failure reason, taken from the response
	// body when it carries one, otherwise the HTTP status line.
	Message string

	// Body is the raw response body (bounded), kept for diagnostics.
	Body []byte
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether the error is a logical 404.
func (e *APIError) IsNotFound() bool {
	return e.Status == 404
}

// IsUnauthorized reports whether the error is a 401.
func (e *APIError) IsUnauthorized() bool {
	return e.Status == 401
}

// newAPIError builds an APIError from a response body, falling back to the
// status line when the body carries no message field. Backends of different
// generations spell the message field differently.
func newAPIError(status int, statusLine string, body []byte) *APIError {
	msg := statusLine

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"message", "mensaje", "error"} {
			raw, ok := payload[key]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && s != "" {
				msg = s
				break
			}
		}
	}

	return &APIError{Status: status, Message: msg, Body: body}
}

// AsAPIError extracts an *APIError from an error chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.IsNotFound()
}

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.IsUnauthorized()
}

// IsCanceled reports whether err stems from the caller's context being
// canceled, as opposed to a backend or transport failure.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
