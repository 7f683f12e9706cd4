// utils/errors.go
package utils

import (
	"errors"
	"net/http"
)

// AppError is a typed failure reason. Workflow code aborts transactions
// with one of the sentinels below; handlers map it to an HTTP response.
type AppError struct {
	Code    string
	Status  int
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// WithMessage returns a copy of the sentinel carrying a more specific
// message. errors.Is still matches the sentinel.
func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{Code: e.Code, Status: e.Status, Message: msg}
}

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

var (
	ErrUnauthorized     = &AppError{Code: "Unauthorized", Status: http.StatusUnauthorized, Message: "authentication required"}
	ErrForbidden        = &AppError{Code: "Forbidden", Status: http.StatusForbidden, Message: "insufficient permissions"}
	ErrNotFound         = &AppError{Code: "NotFound", Status: http.StatusNotFound, Message: "resource not found"}
	ErrInvalidInput     = &AppError{Code: "InvalidInput", Status: http.StatusBadRequest, Message: "invalid input"}
	ErrInvalidState     = &AppError{Code: "InvalidState", Status: http.StatusBadRequest, Message: "illegal state transition"}
	ErrConflict         = &AppError{Code: "Conflict", Status: http.StatusConflict, Message: "concurrent update conflict"}
	ErrCapacityExceeded = &AppError{Code: "CapacityExceeded", Status: http.StatusBadRequest, Message: "employee package limit reached"}
	ErrInvalidOperation = &AppError{Code: "InvalidOperation", Status: http.StatusBadRequest, Message: "operation not allowed for this asset type"}
	ErrInternal         = &AppError{Code: "Internal", Status: http.StatusInternalServerError, Message: "internal server error"}
)

// RespondAppError writes the taxonomy error as a JSON response. Unknown
// errors are surfaced as a generic 500, never with their raw message.
func RespondAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		RespondWithJSON(w, appErr.Status, map[string]string{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}
	RespondWithJSON(w, http.StatusInternalServerError, map[string]string{
		"error": ErrInternal.Message,
		"code":  ErrInternal.Code,
	})
}
