package apiclient

import (
	"errors"
	"net/http"
	"strings"

	"github.com/senyabanana/surplus-market/internal/models"
)

// Kind classifies a failure by the remedy it calls for.
type Kind int

const (
	KindTransient Kind = iota
	KindAuth
	KindForbidden
	KindVerificationRequired
	KindConflict
	KindValidation
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindVerificationRequired:
		return "verification_required"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a failed API call.
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Errors  []string
	Err     error
}

func (e *Error) Error() string {
	if len(e.Errors) > 0 {
		return strings.Join(e.Errors, "; ")
	}
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// AlreadyDecided reports whether the target was already reviewed by someone else.
func (e *Error) AlreadyDecided() bool {
	return e.Code == models.CodeAlreadyDecided
}

// ValidationError is a locally detected input problem, shaped like the
// server's 400 reply.
func ValidationError(problems []string) *Error {
	return &Error{
		Kind:    KindValidation,
		Status:  http.StatusBadRequest,
		Code:    models.CodeValidationFailed,
		Message: "validation failed",
		Errors:  problems,
	}
}

func newError(status int, env models.Envelope) *Error {
	return &Error{
		Kind:    classify(status, env.Code),
		Status:  status,
		Code:    env.Code,
		Message: env.Message,
		Errors:  env.Errors,
	}
}

func classify(status int, code string) Kind {
	switch code {
	case models.CodeAuthRequired:
		return KindAuth
	case models.CodeForbidden:
		return KindForbidden
	case models.CodeVerificationRequired:
		return KindVerificationRequired
	case models.CodeAlreadyDecided, models.CodeStatusConflict, models.CodeDuplicateRequest:
		return KindConflict
	case models.CodeValidationFailed:
		return KindValidation
	case models.CodeNotFound:
		return KindNotFound
	}
	switch {
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindTransient
	}
}

// KindOf classifies any error; errors that did not come from the API are transient.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransient
}
