package core

import (
	"strings"

	"github.com/pkg/errors"
)

// GenericErrorMessage is shown when nothing better can be extracted from an error.
const GenericErrorMessage = "Something went wrong. Please try again."

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	if len(err.Fields) > 0 {
		return err.Fields[0].Error
	}
	return ""
}

// IsValidation reports whether err (or its cause) is a *ValidationError.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// UserMessager is implemented by errors carrying a message meant for the end user,
// typically extracted from an API response body.
type UserMessager interface {
	UserMessage() string
}

// ErrorMessage derives the user-visible text of err:
// the response message if any, then the transport error message, then GenericErrorMessage.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		if msg := vErr.Error(); msg != "" {
			return msg
		}
	}

	var um UserMessager
	if errors.As(err, &um) {
		if msg := strings.TrimSpace(um.UserMessage()); msg != "" {
			return msg
		}
	}

	if msg := strings.TrimSpace(errors.Cause(err).Error()); msg != "" {
		return msg
	}
	return GenericErrorMessage
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
