package middleware

import (
	"encoding/json"
	"net/http"
)

// Error codes
const (
	ErrCodeTagNotFound       = "TAG_NOT_FOUND"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeTypeMismatch      = "TYPE_MISMATCH"
	ErrCodeWriteFailed       = "WRITE_FAILED"
	ErrCodeSubscriptionLimit = "SUBSCRIPTION_LIMIT_REACHED"
	ErrCodePLCConnectionError = "PLC_CONNECTION_ERROR"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeBatchSizeExceeded = "BATCH_SIZE_EXCEEDED"
)

// HTTPError represents an HTTP error with status code and error response
type HTTPError struct {
	StatusCode int
	Response   ErrorResponse
}

// Error implements the error interface
func (e HTTPError) Error() string {
	return e.Response.Error.Message
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, code, message string, details map[string]interface{}) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Response: ErrorResponse{
			Error: ErrorDetail{
				Code:    code,
				Message: message,
				Details: details,
			},
		},
	}
}

// NewTagNotFoundError creates a tag-not-found error
func NewTagNotFoundError(tagAddr string) *HTTPError {
	return NewHTTPError(
		http.StatusNotFound,
		ErrCodeTagNotFound,
		"tag address not found on PLC",
		map[string]interface{}{"tag": tagAddr},
	)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) *HTTPError {
	return NewHTTPError(
		http.StatusBadRequest,
		ErrCodeInvalidRequest,
		message,
		nil,
	)
}

// NewTypeMismatchError creates a type mismatch error
func NewTypeMismatchError(tagAddr string, expected, got string) *HTTPError {
	return NewHTTPError(
		http.StatusBadRequest,
		ErrCodeTypeMismatch,
		"type mismatch when writing tag",
		map[string]interface{}{
			"tag":      tagAddr,
			"expected": expected,
			"got":      got,
		},
	)
}

// NewWriteFailedError creates a write failed error
func NewWriteFailedError(tagAddr, reason string) *HTTPError {
	return NewHTTPError(
		http.StatusInternalServerError,
		ErrCodeWriteFailed,
		"failed to write tag value",
		map[string]interface{}{
			"tag":    tagAddr,
			"reason": reason,
		},
	)
}

// NewPLCConnectionError creates a PLC connection error
func NewPLCConnectionError(message string) *HTTPError {
	return NewHTTPError(
		http.StatusServiceUnavailable,
		ErrCodePLCConnectionError,
		message,
		nil,
	)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *HTTPError {
	return NewHTTPError(
		http.StatusInternalServerError,
		ErrCodeInternalError,
		message,
		nil,
	)
}

// NewBatchSizeExceededError creates a batch size exceeded error
func NewBatchSizeExceededError(requested, max int) *HTTPError {
	return NewHTTPError(
		http.StatusBadRequest,
		ErrCodeBatchSizeExceeded,
		"batch size exceeds maximum allowed",
		map[string]interface{}{
			"requested": requested,
			"maximum":   max,
		},
	)
}

// WriteError writes an error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err error) {
	var httpErr *HTTPError
	var ok bool

	if httpErr, ok = err.(*HTTPError); !ok {
		httpErr = NewInternalError(err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpErr.StatusCode)
	json.NewEncoder(w).Encode(httpErr.Response)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}
