package apierr

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/logger"
)

// ErrorCode represents a structured error code
type ErrorCode string

// Error code constants organized by category
const (
	// MEMORY_ - Memory lifecycle errors
	ErrMemoryUnknownCategory ErrorCode = "MEMORY_UNKNOWN_CATEGORY"
	ErrMemoryEntryNotFound   ErrorCode = "MEMORY_ENTRY_NOT_FOUND"
	ErrMemorySweepSkipped    ErrorCode = "MEMORY_SWEEP_SKIPPED"
	ErrMemoryDestroyed       ErrorCode = "MEMORY_DESTROYED"

	// ANALYTICS_ - Analytics event errors
	ErrAnalyticsInvalidEvent ErrorCode = "ANALYTICS_INVALID_EVENT"
	ErrAnalyticsInvalidDate  ErrorCode = "ANALYTICS_INVALID_DATE"
	ErrAnalyticsNoData       ErrorCode = "ANALYTICS_NO_DATA"
	ErrAnalyticsFlushFailed  ErrorCode = "ANALYTICS_FLUSH_FAILED"
	ErrAnalyticsClosed       ErrorCode = "ANALYTICS_CLOSED"

	// SYSTEM_ - System and server errors
	ErrSystemInternal    ErrorCode = "SYSTEM_INTERNAL"
	ErrSystemDatabase    ErrorCode = "SYSTEM_DATABASE"
	ErrSystemUnavailable ErrorCode = "SYSTEM_UNAVAILABLE"
	ErrSystemTimeout     ErrorCode = "SYSTEM_TIMEOUT"

	// VALIDATION_ - Request validation errors
	ErrValidationInvalidJSON   ErrorCode = "VALIDATION_INVALID_JSON"
	ErrValidationInvalidFormat ErrorCode = "VALIDATION_INVALID_FORMAT"
	ErrValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrValidationInvalidValue  ErrorCode = "VALIDATION_INVALID_VALUE"
	ErrValidationTooLarge      ErrorCode = "VALIDATION_TOO_LARGE"

	// RESOURCE_ - Resource errors
	ErrResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"

	// RATE_LIMIT_ - Rate limiting errors
	ErrRateLimitGlobal ErrorCode = "RATE_LIMIT_GLOBAL"
	ErrRateLimitIP     ErrorCode = "RATE_LIMIT_IP"
)

// Error represents a structured API error
type Error struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	status    int                    // HTTP status code (not serialized)
}

// ErrorResponse is the top-level error response wrapper
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// New creates a new API error
func New(code ErrorCode, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		status:  status,
	}
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// WithRequestID adds a request ID to the error
func (e *Error) WithRequestID(requestID string) *Error {
	e.RequestID = requestID
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Status returns the HTTP status code
func (e *Error) Status() int {
	return e.status
}

// WriteError writes a structured error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	json.NewEncoder(w).Encode(ErrorResponse{Error: err})
}

// Helper functions for common errors

// MemoryUnknownCategory creates an unknown cache category error
func MemoryUnknownCategory(category string) *Error {
	return New(ErrMemoryUnknownCategory, "Unknown memory category: "+category, http.StatusNotFound).
		WithDetails(map[string]interface{}{"category": category})
}

// MemoryEntryNotFound creates a missing cache entry error
func MemoryEntryNotFound(category, id string) *Error {
	return New(ErrMemoryEntryNotFound, "Entry not found or already evicted", http.StatusNotFound).
		WithDetails(map[string]interface{}{"category": category, "id": id})
}

// MemorySweepSkipped reports a sweep refused because another is running
func MemorySweepSkipped() *Error {
	return New(ErrMemorySweepSkipped, "A sweep is already in progress", http.StatusConflict)
}

// MemoryDestroyed reports a lifecycle manager that has been shut down
func MemoryDestroyed() *Error {
	return New(ErrMemoryDestroyed, "Memory manager has been shut down", http.StatusServiceUnavailable)
}

// AnalyticsInvalidEvent creates an invalid event error
func AnalyticsInvalidEvent(message string) *Error {
	if message == "" {
		message = "Invalid analytics event"
	}
	return New(ErrAnalyticsInvalidEvent, message, http.StatusBadRequest)
}

// AnalyticsInvalidDate creates an invalid metrics date error
func AnalyticsInvalidDate(date string) *Error {
	return New(ErrAnalyticsInvalidDate, "Date must be formatted as YYYY-MM-DD", http.StatusBadRequest).
		WithDetails(map[string]interface{}{"date": date})
}

// AnalyticsNoData creates a no metrics error
func AnalyticsNoData(date string) *Error {
	return New(ErrAnalyticsNoData, "No analytics recorded for "+date, http.StatusNotFound)
}

// AnalyticsFlushFailed creates a flush failure error
func AnalyticsFlushFailed(message string) *Error {
	if message == "" {
		message = "Failed to write analytics events; they remain queued"
	}
	return New(ErrAnalyticsFlushFailed, message, http.StatusServiceUnavailable)
}

// AnalyticsClosed reports a service that no longer accepts events
func AnalyticsClosed() *Error {
	return New(ErrAnalyticsClosed, "Analytics service is shutting down", http.StatusServiceUnavailable)
}

// SystemInternal creates an internal server error
func SystemInternal(message string) *Error {
	if message == "" {
		message = "Internal server error"
	}
	return New(ErrSystemInternal, message, http.StatusInternalServerError)
}

// SystemDatabase creates a database error
func SystemDatabase(message string) *Error {
	if message == "" {
		message = "Database error"
	}
	return New(ErrSystemDatabase, message, http.StatusInternalServerError)
}

// SystemUnavailable creates a service unavailable error
func SystemUnavailable(message string) *Error {
	if message == "" {
		message = "Service unavailable"
	}
	return New(ErrSystemUnavailable, message, http.StatusServiceUnavailable)
}

// SystemTimeout creates a system timeout error
func SystemTimeout(message string) *Error {
	if message == "" {
		message = "Request timeout"
	}
	return New(ErrSystemTimeout, message, http.StatusRequestTimeout)
}

// ValidationInvalidJSON creates an invalid JSON error
func ValidationInvalidJSON() *Error {
	return New(ErrValidationInvalidJSON, "Invalid JSON request body", http.StatusBadRequest)
}

// ValidationInvalidFormat creates an invalid format error
func ValidationInvalidFormat(message string) *Error {
	if message == "" {
		message = "Invalid request format"
	}
	return New(ErrValidationInvalidFormat, message, http.StatusBadRequest)
}

// ValidationMissingField creates a missing field error
func ValidationMissingField(field string) *Error {
	return New(ErrValidationMissingField, "Missing required field: "+field, http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

// ValidationInvalidValue creates an invalid value error
func ValidationInvalidValue(field string, message string) *Error {
	if message == "" {
		message = "Invalid value for field: " + field
	}
	return New(ErrValidationInvalidValue, message, http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

// ResourceNotFound creates a resource not found error
func ResourceNotFound(resourceType string) *Error {
	return New(ErrResourceNotFound, resourceType+" not found", http.StatusNotFound).
		WithDetails(map[string]interface{}{"resource_type": resourceType})
}

// ValidationTooLarge creates a request body too large error
func ValidationTooLarge(limit int64) *Error {
	return New(ErrValidationTooLarge, "Request body too large", http.StatusRequestEntityTooLarge).
		WithDetails(map[string]interface{}{"limit_bytes": limit})
}

// RateLimitGlobal creates a global rate limit error
func RateLimitGlobal() *Error {
	return New(ErrRateLimitGlobal, "Rate limit exceeded - too many requests globally", http.StatusTooManyRequests)
}

// RateLimitIP creates an IP rate limit error
func RateLimitIP() *Error {
	return New(ErrRateLimitIP, "Rate limit exceeded - too many requests from your IP", http.StatusTooManyRequests)
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}

// WriteErrorWithContext writes a structured error response with request ID from context
func WriteErrorWithContext(w http.ResponseWriter, r *http.Request, err *Error) {
	if reqID := GetRequestID(r.Context()); reqID != "" {
		err = err.WithRequestID(reqID)
	}
	WriteError(w, err)
}
