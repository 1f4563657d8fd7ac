package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"

	"budgetbuddy/internal/i18n"
)

// Classify maps the outcome of an auth request onto the taxonomy.
// err is the transport error (no response); otherwise status and body describe
// the response. It returns nil for a 2xx response.
func Classify(status int, body []byte, err error, loc *i18n.Localizer) error {
	if err != nil {
		return classifyTransport(err, loc)
	}
	if status >= 200 && status < 300 {
		return nil
	}
	if status < 100 {
		return Unknown(i18n.KeyUnknown, loc.T(i18n.KeyUnknown), errors.New("response without status"))
	}
	if msg := serverMessage(body); msg != "" {
		return Server(status, "", msg)
	}
	return Server(status, i18n.KeyServerFallback, loc.T(i18n.KeyServerFallback))
}

// ClassifyFetch maps the outcome of the transactions read onto the taxonomy.
// A non-2xx response becomes a fetch failure carrying the raw body text; an
// empty body falls back to the catalog message.
func ClassifyFetch(status int, body []byte, err error, loc *i18n.Localizer) error {
	if err != nil {
		return classifyTransport(err, loc)
	}
	if status >= 200 && status < 300 {
		return nil
	}
	return Fetch(status, string(body), i18n.KeyFetchFailed, loc.T(i18n.KeyFetchFailed))
}

func classifyTransport(err error, loc *i18n.Localizer) error {
	if errors.Is(err, ErrResponseTooLarge) {
		return Unknown(i18n.KeyResponseTooLarge, loc.T(i18n.KeyResponseTooLarge), err)
	}
	if NoResponse(err) {
		return Connectivity(i18n.KeyUnreachable, loc.T(i18n.KeyUnreachable), err)
	}
	return Unknown(i18n.KeyUnknown, loc.T(i18n.KeyUnknown), err)
}

// NoResponse reports whether err means the request never produced a response:
// refused or reset connections, DNS failures, timeouts and cancellation.
func NoResponse(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return true
	}
	return false
}

func serverMessage(body []byte) string {
	var payload struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == nil {
		return ""
	}
	return strings.TrimSpace(*payload.Message)
}
