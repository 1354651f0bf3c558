package service

import (
	"errors"
	"net/http"
)

// Kind classifies an AppError and decides its HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindExpired
)

// Code is a stable, machine-readable reason attached to an AppError.
type Code string

const (
	CodeValidation             Code = "Validation"
	CodeInvalidOTP             Code = "InvalidOTP"
	CodeExpired                Code = "Expired"
	CodeVerificationMismatch   Code = "VerificationMismatch"
	CodeAlreadyVerified        Code = "AlreadyVerified"
	CodeInvalidRole            Code = "InvalidRole"
	CodeNoUser                 Code = "NoUser"
	CodeUserNotFound           Code = "UserNotFound"
	CodeNoRole                 Code = "NoRole"
	CodeInsufficientPermission Code = "InsufficientPermission"
	CodeUnauthenticated        Code = "Unauthenticated"
	CodeInvalidToken           Code = "InvalidToken"
	CodeInvalidCredentials     Code = "InvalidCredentials"
	CodeEmailNotVerified       Code = "EmailNotVerified"
	CodeConflict               Code = "Conflict"
	CodeNotFound               Code = "NotFound"
	CodeSelfDeletion           Code = "SelfDeletion"
	CodeResetTicketRequired    Code = "ResetTicketRequired"
	CodeInternal               Code = "Internal"
)

// AppError is the error type returned by every service operation.  Message
// is safe to show to clients; Err carries the underlying cause and is only
// exposed in development.
type AppError struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Status maps the error onto an HTTP status code.  A missing token is the
// only authentication failure reported as 401; bad credentials and bad
// tokens are 400.
func (e *AppError) Status() int {
	switch e.Kind {
	case KindValidation, KindExpired:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuthentication:
		if e.Code == CodeUnauthenticated {
			return http.StatusUnauthorized
		}
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Detail returns the developer-facing description of the cause.
func (e *AppError) Detail() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

// AsAppError unwraps err into an *AppError; anything else becomes an
// internal error wrapping it.
func AsAppError(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return Internal("Server error", err)
}

func newErr(k Kind, c Code, msg string, err error) *AppError {
	return &AppError{Kind: k, Code: c, Message: msg, Err: err}
}

func Validation(c Code, msg string) *AppError { return newErr(KindValidation, c, msg, nil) }
func Conflict(msg string) *AppError           { return newErr(KindConflict, CodeConflict, msg, nil) }
func NotFound(c Code, msg string) *AppError   { return newErr(KindNotFound, c, msg, nil) }
func Expired(msg string) *AppError            { return newErr(KindExpired, CodeExpired, msg, nil) }
func Forbidden(c Code, msg string) *AppError  { return newErr(KindAuthorization, c, msg, nil) }
func Unauthenticated(c Code, msg string) *AppError {
	return newErr(KindAuthentication, c, msg, nil)
}
func Internal(msg string, err error) *AppError { return newErr(KindInternal, CodeInternal, msg, err) }
