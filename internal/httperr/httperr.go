package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error is the status-carrying error the core raises and the HTTP layer maps
// verbatim. Status uses HTTP codes: 400 invalid input/state, 403 forbidden,
// 404 not found, 500 internal.
type Error struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

func New(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) *Error {
	return New(http.StatusBadRequest, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(http.StatusForbidden, format, args...)
}

func Internal(format string, args ...any) *Error {
	return New(http.StatusInternalServerError, format, args...)
}

// StatusOf returns the HTTP status for any error.
func StatusOf(err error) int {
	var he *Error
	if errors.As(err, &he) {
		return he.Status
	}
	return http.StatusInternalServerError
}

// Write sends err as a JSON body with the mapped status code.
func Write(w http.ResponseWriter, err error) {
	var he *Error
	if !errors.As(err, &he) {
		he = Internal("internal error")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.Status)
	_ = json.NewEncoder(w).Encode(he)
}
