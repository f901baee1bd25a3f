package httpapi

import (
	"errors"
	"net/http"

	"github.com/jmptrader/WebVella-ERP/internal/mail"
	"github.com/jmptrader/WebVella-ERP/internal/repository"
	"github.com/jmptrader/WebVella-ERP/pkg/validator"
)

// HTTPError is an error with everything needed to render a JSON error body.
type HTTPError struct {
	// Err is the underlying error, logged but never exposed.
	Err error `json:"-"`

	// Message is the user-facing error message.
	Message string `json:"message"`

	// Fields holds per-field messages for validation failures.
	Fields map[string][]string `json:"fields,omitempty"`

	// RequestID is filled in by the error renderer.
	RequestID string `json:"request_id,omitempty"`

	// Code is the HTTP status code.
	Code int `json:"-"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func (e *HTTPError) StatusCode() int {
	return e.Code
}

// NewHTTPError creates a new HTTPError with the given status code and message.
func NewHTTPError(code int, message string, err error) *HTTPError {
	return &HTTPError{Code: code, Message: message, Err: err}
}

func errBadRequest(message string, err error) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message, err)
}

// toHTTPError maps domain errors to HTTP statuses. Anything unknown is a 500
// with a generic message.
func toHTTPError(err error) *HTTPError {
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case validator.IsValidationError(err):
		return &HTTPError{
			Code:    http.StatusUnprocessableEntity,
			Message: "validation failed",
			Fields:  validator.ExtractValidationErrors(err).Fields(),
			Err:     err,
		}
	case errors.Is(err, mail.ErrEmailNotFound):
		return NewHTTPError(http.StatusNotFound, "email not found", err)
	case errors.Is(err, mail.ErrServiceNotFound):
		return NewHTTPError(http.StatusNotFound, "smtp service not found", err)
	case errors.Is(err, repository.ErrDuplicateName):
		return &HTTPError{
			Code:    http.StatusUnprocessableEntity,
			Message: "validation failed",
			Fields:  map[string][]string{"name": {mail.MsgNameNotUnique}},
			Err:     err,
		}
	case errors.Is(err, repository.ErrSecondDefault):
		return NewHTTPError(http.StatusConflict, "another smtp service became the default, retry the request", err)
	case errors.Is(err, mail.ErrNoDefaultService):
		return NewHTTPError(http.StatusConflict, "no default smtp service is configured", err)
	default:
		return NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), err)
	}
}
