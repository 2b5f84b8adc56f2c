package models

import "net/http"

// Machine-readable error codes carried in the response envelope.
const (
	CodeAuthRequired         = "auth_required"
	CodeForbidden            = "forbidden"
	CodeVerificationRequired = "verification_required"
	CodeNotFound             = "not_found"
	CodeAlreadyDecided       = "already_decided"
	CodeStatusConflict       = "status_conflict"
	CodeDuplicateRequest     = "duplicate_request"
	CodeValidationFailed     = "validation_failed"
	CodeInternal             = "internal"
)

// ErrorResponse describes a failed operation with its HTTP status, code and message.
type ErrorResponse struct {
	StatusCode int      `json:"-"`
	Code       string   `json:"code,omitempty"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors,omitempty"`
}

// NewErrorResponse creates an error with a status code and message.
func NewErrorResponse(statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Code:       defaultCode(statusCode),
		Message:    message}
}

// NewCodedError creates an error with an explicit machine code.
func NewCodedError(statusCode int, code, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}

// NewValidationError collects field problems into a single 400 response.
func NewValidationError(problems ...string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: http.StatusBadRequest,
		Code:       CodeValidationFailed,
		Message:    "validation failed",
		Errors:     problems,
	}
}

// Error implements the error interface.
func (e *ErrorResponse) Error() string {
	return e.Message
}

func defaultCode(statusCode int) string {
	switch statusCode {
	case http.StatusUnauthorized:
		return CodeAuthRequired
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeStatusConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidationFailed
	default:
		return CodeInternal
	}
}
