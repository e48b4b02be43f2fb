package gateway

import (
	"errors"
	"fmt"
)

// ErrUploadFailed covers network failures, non-2xx replies, undecodable
// bodies and replies with status "error". The caller may retry with the
// same response.
var ErrUploadFailed = errors.New("upload failed")

// ErrMalformedResponse marks a successful reply that lacks the fields the
// session needs. It is also an ErrUploadFailed.
var ErrMalformedResponse = fmt.Errorf("%w: malformed server response", ErrUploadFailed)

// ServerError carries the message the backend attached to a failure.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (e *ServerError) Unwrap() error { return ErrUploadFailed }

// UserMessage returns the text shown to the user for a gateway error.
func UserMessage(err error) string {
	var se *ServerError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &se) && se.Message != "":
		return "The panel could not process your answer: " + se.Message
	case errors.Is(err, ErrMalformedResponse):
		return "The panel sent an unexpected reply. Retry to resend the same answer."
	default:
		return "Could not reach the panel. Retry to resend the same answer."
	}
}
