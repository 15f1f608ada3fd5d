package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/me/shopadmin/pkg/model"
)

// GenericFailure is shown to users for failures that carry no API message.
const GenericFailure = "Request failed"

// HTTPError is a non-2xx response. Message is already normalized for display:
// the JSON body's message or error field, else the raw body text, else
// "HTTP <status>".
type HTTPError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

// Error returns the normalized message unchanged.
func (e *HTTPError) Error() string {
	return e.Message
}

// TransportError is a request that never produced an HTTP response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: request failed: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsCanceled reports whether err comes from a canceled or superseded request.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// UserMessage maps an error to the text of a transient notification.
// Canceled requests produce "" since nothing should be shown for them.
func UserMessage(err error) string {
	if err == nil || IsCanceled(err) {
		return ""
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Message
	}
	var fe model.FieldErrors
	if errors.As(err, &fe) {
		return "Please fix the highlighted fields"
	}
	return GenericFailure
}
