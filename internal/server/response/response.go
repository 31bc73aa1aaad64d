// Package response builds the JSON envelope returned by every HTTP endpoint and maps tenant
// and credential errors onto status codes.
package response

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"storefront/backend/internal/credentials"
	"storefront/backend/internal/tenant/domain"
)

// Response is the standard API envelope.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo carries a machine-readable code plus a human message.
type ErrorInfo struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Error codes.
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeAmbiguousState     = "AMBIGUOUS_STATE"
	ErrCodeConfiguration      = "CONFIGURATION_ERROR"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Success wraps data in a success envelope.
func Success(data any) *Response {
	return &Response{Success: true, Data: data}
}

// Error creates an error envelope.
func Error(code, message string) *Response {
	return &Response{Success: false, Error: &ErrorInfo{Code: code, Message: message}}
}

// ErrorWithDetails creates an error envelope with per-field details.
func ErrorWithDetails(code, message string, details map[string]string) *Response {
	return &Response{Success: false, Error: &ErrorInfo{Code: code, Message: message, Details: details}}
}

// BadRequest creates a 400 envelope for malformed input.
func BadRequest(message string) *Response {
	return Error(ErrCodeBadRequest, message)
}

// Unauthorized creates a 401 envelope.
func Unauthorized(message string) *Response {
	if message == "" {
		message = "Authentication required"
	}
	return Error(ErrCodeUnauthorized, message)
}

// Forbidden creates a 403 envelope.
func Forbidden(message string) *Response {
	if message == "" {
		message = "Access denied"
	}
	return Error(ErrCodeForbidden, message)
}

// FromError maps err to a status and envelope. Server-side failures are logged on log; their
// messages are never passed to the client except for configuration errors, which carry no secrets.
func FromError(err error, log *zap.Logger) (int, *Response) {
	if log == nil {
		log = zap.NewNop()
	}

	var validation *domain.ValidationError
	var notFound *domain.NotFoundError
	var conflict *domain.ConflictError
	var ambiguous *domain.AmbiguousStateError
	var configErr *credentials.ConfigurationError

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, ErrorWithDetails(ErrCodeValidationFailed, "Validation failed",
			map[string]string{validation.Field: validation.Reason})
	case errors.As(err, &notFound):
		return http.StatusNotFound, Error(ErrCodeNotFound, "Tenant not found")
	case errors.As(err, &conflict):
		return http.StatusConflict, ErrorWithDetails(ErrCodeConflict, conflict.Error(),
			map[string]string{conflict.Field: "already in use"})
	case errors.As(err, &ambiguous):
		log.Error("tenant state is ambiguous: more than one active tenant",
			zap.Strings("tenant_ids", ambiguous.IDs), zap.Error(err))
		return http.StatusInternalServerError, Error(ErrCodeAmbiguousState, "Tenant configuration is inconsistent")
	case errors.As(err, &configErr):
		log.Error("backend credentials are not configured", zap.String("class", string(configErr.Class)), zap.Error(err))
		return http.StatusInternalServerError, Error(ErrCodeConfiguration, configErr.Error())
	default:
		log.Error("request failed", zap.Error(err))
		return http.StatusInternalServerError, Error(ErrCodeInternalError, "An internal error occurred")
	}
}
