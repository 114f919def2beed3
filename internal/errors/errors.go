package errors

import "net/http"

// Error kinds surfaced to clients alongside the HTTP status.
const (
	KindValidation         = "validation_error"
	KindBadRequest         = "bad_request"
	KindNotFound           = "not_found"
	KindForbidden          = "forbidden"
	KindForbiddenOperation = "forbidden_operation"
	KindInvalidTransition  = "invalid_transition"
	KindConflict           = "conflict"
	KindUnprocessable      = "unprocessable_entity"
	KindInternal           = "internal"
)

// APIError is the application error carried through gin's error list and
// rendered by the ErrorHandler middleware.
type APIError struct {
	Status   int    `json:"-"`
	Kind     string `json:"code"`
	Message  string `json:"error"`
	Internal error  `json:"-"`
}

// Error returns the error message
func (e *APIError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

// Unwrap returns the original error
func (e *APIError) Unwrap() error {
	return e.Internal
}

func newError(status int, kind, message string, err error) *APIError {
	return &APIError{Status: status, Kind: kind, Message: message, Internal: err}
}

// NewValidationError wraps a request-binding failure.
func NewValidationError(err error) *APIError {
	return newError(http.StatusUnprocessableEntity, KindValidation, "Validation failed", err)
}

// Validation is a validation failure with a specific message.
func Validation(message string, err error) *APIError {
	return newError(http.StatusUnprocessableEntity, KindValidation, message, err)
}

func BadRequest(message string, err error) *APIError {
	return newError(http.StatusBadRequest, KindBadRequest, message, err)
}

func NotFound(message string, err error) *APIError {
	return newError(http.StatusNotFound, KindNotFound, message, err)
}

func Forbidden(message string, err error) *APIError {
	return newError(http.StatusForbidden, KindForbidden, message, err)
}

// ForbiddenOperation marks an operation the document model never allows,
// e.g. deleting an auto characteristic.
func ForbiddenOperation(message string, err error) *APIError {
	return newError(http.StatusForbidden, KindForbiddenOperation, message, err)
}

// InvalidTransition marks an illegal status change.
func InvalidTransition(message string, err error) *APIError {
	return newError(http.StatusUnprocessableEntity, KindInvalidTransition, message, err)
}

func Conflict(message string, err error) *APIError {
	return newError(http.StatusConflict, KindConflict, message, err)
}

func UnprocessableEntity(message string, err error) *APIError {
	return newError(http.StatusUnprocessableEntity, KindUnprocessable, message, err)
}

func Internal(err error) *APIError {
	return newError(http.StatusInternalServerError, KindInternal, "Internal server error", err)
}
