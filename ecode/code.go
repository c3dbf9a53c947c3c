package ecode

import (
	"net/http"
	"sync"
)

// Common codes
const (
	OK                 = 0
	RequestErr         = -400
	ParamErr           = -401
	NotFound           = -404
	Conflict           = -409
	ServerErr          = -500
	ServiceUnavailable = -503
	Deadline           = -504
)

// Document store codes
const (
	InvalidCursor = -1001
	InvalidSort   = -1002
	InvalidRecord = -1003
	StoreErr      = -1004
)

var (
	mu    sync.RWMutex
	texts = map[int]string{
		OK:                 "ok",
		RequestErr:         "Invalid request",
		ParamErr:           "Invalid parameters",
		NotFound:           "Resource not found",
		Conflict:           "Resource conflict",
		ServerErr:          "Internal server error",
		ServiceUnavailable: "Service unavailable",
		Deadline:           "Deadline exceeded",
		InvalidCursor:      "Invalid pagination cursor",
		InvalidSort:        "Invalid sort specification",
		InvalidRecord:      "Record failed validation",
		StoreErr:           "Document store error",
	}
	statuses = map[int]int{
		OK:                 http.StatusOK,
		RequestErr:         http.StatusBadRequest,
		ParamErr:           http.StatusBadRequest,
		NotFound:           http.StatusNotFound,
		Conflict:           http.StatusConflict,
		ServerErr:          http.StatusInternalServerError,
		ServiceUnavailable: http.StatusServiceUnavailable,
		Deadline:           http.StatusGatewayTimeout,
		InvalidCursor:      http.StatusBadRequest,
		InvalidSort:        http.StatusBadRequest,
		InvalidRecord:      http.StatusUnprocessableEntity,
		StoreErr:           http.StatusBadGateway,
	}
)

// Text returns the message of code, or the server error message for an
// unknown code.
func Text(code int) string {
	mu.RLock()
	defer mu.RUnlock()
	if msg, ok := texts[code]; ok {
		return msg
	}
	return texts[ServerErr]
}

// Register adds or replaces the message and HTTP status of code.
func Register(code int, message string, status int) {
	mu.Lock()
	defer mu.Unlock()
	texts[code] = message
	statuses[code] = status
}

// ToHTTPStatus maps code to an HTTP status.
func ToHTTPStatus(code int) int {
	mu.RLock()
	defer mu.RUnlock()
	if s, ok := statuses[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}
