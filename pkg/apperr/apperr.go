package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the application error type. Handlers resolve every failure to one
// of these before writing a response; the HTTP layer only ever sees Status
// and Message, never wrapped internals.
type Error struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string) *Error {
	return &Error{Code: "VALIDATION_ERROR", Message: message, Status: http.StatusBadRequest}
}

func DuplicateAccount(message string) *Error {
	return &Error{Code: "DUPLICATE_ACCOUNT", Message: message, Status: http.StatusBadRequest}
}

func InvalidCredentials(message string) *Error {
	return &Error{Code: "INVALID_CREDENTIALS", Message: message, Status: http.StatusBadRequest}
}

func PasswordMismatch(message string) *Error {
	return &Error{Code: "PASSWORD_MISMATCH", Message: message, Status: http.StatusBadRequest}
}

func DuplicateAddressType(message string) *Error {
	return &Error{Code: "DUPLICATE_ADDRESS_TYPE", Message: message, Status: http.StatusBadRequest}
}

func Unauthenticated(message string) *Error {
	return &Error{Code: "UNAUTHENTICATED", Message: message, Status: http.StatusUnauthorized}
}

func Forbidden(message string) *Error {
	return &Error{Code: "FORBIDDEN", Message: message, Status: http.StatusForbidden}
}

func NotFound(message string) *Error {
	return &Error{Code: "NOT_FOUND", Message: message, Status: http.StatusNotFound}
}

func Upload(err error) *Error {
	return &Error{Code: "UPLOAD_ERROR", Message: "Failed to upload file", Status: http.StatusInternalServerError, Err: err}
}

func Mail(err error) *Error {
	return &Error{Code: "MAIL_ERROR", Message: "Failed to send email", Status: http.StatusInternalServerError, Err: err}
}

func Internal(err error) *Error {
	return &Error{Code: "INTERNAL", Message: "Internal server error", Status: http.StatusInternalServerError, Err: err}
}

// Token verification failures. Expired is distinct so the activation route
// can tell the user to re-register rather than to retry the same link.
var (
	ErrTokenExpired = &Error{Code: "TOKEN_EXPIRED", Message: "Token has expired", Status: http.StatusBadRequest}
	ErrInvalidToken = &Error{Code: "INVALID_TOKEN", Message: "Invalid token", Status: http.StatusBadRequest}
)

// From normalizes any error to *Error. Unknown errors become 500s so that
// internals are never leaked to the client.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}
