// Package apierr defines the closed set of failures the client surfaces to the
// user, and the single function that maps a raw transport outcome onto them.
package apierr

import (
	"errors"
	"strings"
)

// Kind classifies client failures.
type Kind string

const (
	// KindValidation is a local precondition failure; no request was sent.
	KindValidation Kind = "validation"
	// KindConnectivity means no response reached the client.
	KindConnectivity Kind = "connectivity"
	// KindServer means the auth service answered with a non-2xx status.
	KindServer Kind = "server"
	// KindUnknown covers every failure shape not matched above.
	KindUnknown Kind = "unknown"
	// KindMissingToken means an authenticated call was attempted without a session.
	KindMissingToken Kind = "missing_token"
	// KindFetch means the authenticated read reached the server and failed.
	KindFetch Kind = "fetch"
)

// ErrResponseTooLarge means a response body exceeded the client's read cap.
// The body is discarded rather than decoded partially.
var ErrResponseTooLarge = errors.New("response body too large")

// Error is a typed client failure.
type Error struct {
	Kind Kind
	// Key is the i18n key of Message when Message came from the catalog.
	Key     string
	Message string
	// Status is the HTTP status when a response was received.
	Status int
	// Body is the raw response body for fetch failures.
	Body string
	Err  error
}

// Error renders the user-facing message.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds a local validation failure.
func Validation(key, message string) *Error {
	return &Error{Kind: KindValidation, Key: key, Message: message}
}

// Connectivity builds a no-response failure.
func Connectivity(key, message string, err error) *Error {
	return &Error{Kind: KindConnectivity, Key: key, Message: message, Err: err}
}

// Server builds a rejected-by-server failure.
func Server(status int, key, message string) *Error {
	return &Error{Kind: KindServer, Status: status, Key: key, Message: message}
}

// Unknown builds a failure of unexpected shape.
func Unknown(key, message string, err error) *Error {
	return &Error{Kind: KindUnknown, Key: key, Message: message, Err: err}
}

// MissingToken builds the no-session failure.
func MissingToken(key, message string) *Error {
	return &Error{Kind: KindMissingToken, Key: key, Message: message}
}

// Fetch builds an authenticated-read failure carrying the raw body.
// The body is the message unless it is blank, then fallback is shown under key.
func Fetch(status int, body, key, fallback string) *Error {
	if strings.TrimSpace(body) != "" {
		return &Error{Kind: KindFetch, Status: status, Body: body, Message: body}
	}
	return &Error{Kind: KindFetch, Status: status, Body: body, Key: key, Message: fallback}
}

// KindOf returns the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if !errors.As(err, &appErr) {
		return KindUnknown
	}
	return appErr.Kind
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// Message returns the user-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return strings.TrimSpace(err.Error())
}
