package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Constructors
func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func InvalidArg(msg string) error {
	return New(CodeInvalidArgument, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func MediaNotFound(msg string, cause error) error {
	return Wrap(CodeMediaNotFound, msg, cause)
}

func AlreadyExists(msg string) error {
	return New(CodeAlreadyExists, msg)
}

func Unauthorized(msg string) error {
	return New(CodeUnauthenticated, msg)
}

func Forbidden(msg string) error {
	return New(CodePermissionDenied, msg)
}

func Internal(msg string, cause error) error {
	return Wrap(CodeInternal, msg, cause)
}

// CodeOf extracts the taxonomy code from any error in the chain.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// HTTPStatus maps an error to the status the controllers respond with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound, CodeMediaNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
