package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Repositories return these (wrapped); services translate
// them into AppErrors before they reach a transport.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrAlreadyExists    = errors.New("resource already exists")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrExpired          = errors.New("expired")
	ErrInternal         = errors.New("internal error")
	ErrPaymentFailed    = errors.New("payment failed")
)

// kind is the wire code and status every error of one sentinel shares.
type kind struct {
	sentinel error
	code     string
	status   int
}

// Expiry only ever applies to credentials, so it surfaces as 401.
var kinds = []kind{
	{ErrNotFound, "NOT_FOUND", http.StatusNotFound},
	{ErrAlreadyExists, "ALREADY_EXISTS", http.StatusConflict},
	{ErrInvalidArgument, "INVALID_ARGUMENT", http.StatusBadRequest},
	{ErrUnauthenticated, "UNAUTHENTICATED", http.StatusUnauthorized},
	{ErrPermissionDenied, "PERMISSION_DENIED", http.StatusForbidden},
	{ErrExpired, "EXPIRED", http.StatusUnauthorized},
	{ErrPaymentFailed, "PAYMENT_FAILED", http.StatusUnprocessableEntity},
	{ErrInternal, "INTERNAL", http.StatusInternalServerError},
}

func kindOf(sentinel error) kind {
	for _, k := range kinds {
		if k.sentinel == sentinel {
			return k
		}
	}
	return kind{sentinel: ErrInternal, code: "INTERNAL", status: http.StatusInternalServerError}
}

// AppError is an error that knows how it is presented to a client.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func newAppError(sentinel error, message string) *AppError {
	k := kindOf(sentinel)
	return &AppError{Code: k.code, Message: message, Status: k.status, Err: sentinel}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing resource by id.
func NotFound(resource, id string) *AppError {
	return newAppError(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

// NotFoundMessage reports a missing resource with a free-form message.
func NotFoundMessage(message string) *AppError {
	return newAppError(ErrNotFound, message)
}

func AlreadyExists(resource, field, value string) *AppError {
	return newAppError(ErrAlreadyExists, fmt.Sprintf("%s with %s %q already exists", resource, field, value))
}

func InvalidArgument(message string) *AppError {
	return newAppError(ErrInvalidArgument, message)
}

func Unauthenticated(message string) *AppError {
	return newAppError(ErrUnauthenticated, message)
}

func PermissionDenied(message string) *AppError {
	return newAppError(ErrPermissionDenied, message)
}

// Expired reports a credential whose validity window has passed.
func Expired(resource string) *AppError {
	return newAppError(ErrExpired, resource+" has expired")
}

// PaymentFailed reports a charge the provider declined.
func PaymentFailed(message string) *AppError {
	return newAppError(ErrPaymentFailed, message)
}

// Internal hides err behind a generic message. err is kept for logging.
func Internal(err error) *AppError {
	e := newAppError(ErrInternal, "an internal error occurred")
	e.Err = err
	return e
}

// HTTPStatus returns the HTTP status for err: the AppError status when
// there is one, else the status of the first wrapped sentinel.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}
