package app_error

import (
	"encoding/json"
	"net/http"
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e AppError) Error() string {
	return e.Message
}

func (e AppError) JSON(w http.ResponseWriter) error {
	return json.NewEncoder(w).Encode(e)
}

func NewAppError(code int, msg, field string) *AppError {
	return &AppError{
		Code:    code,
		Message: msg,
		Field:   field,
	}
}

// Constructors for the failure classes the realtime layer distinguishes.
// The websocket dispatcher maps Code back onto error / live_chat_error events.

func BadRequest(msg, field string) *AppError {
	return NewAppError(http.StatusBadRequest, msg, field)
}

func AuthenticationFailed(msg string) *AppError {
	return NewAppError(http.StatusUnauthorized, msg, "auth")
}

func AccessDenied(msg string) *AppError {
	return NewAppError(http.StatusForbidden, msg, "access")
}

func NotFound(msg string) *AppError {
	return NewAppError(http.StatusNotFound, msg, "not-found")
}

func DuplicateSession(msg string) *AppError {
	return NewAppError(http.StatusConflict, msg, "session")
}

func PersistenceFailure(msg string) *AppError {
	return NewAppError(http.StatusInternalServerError, msg, "db-error")
}
