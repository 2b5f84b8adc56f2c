package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/senyabanana/surplus-market/internal/logger"
	"github.com/senyabanana/surplus-market/internal/models"
)

// SendJSON writes a successful envelope as JSON.
func SendJSON(w http.ResponseWriter, r *http.Request, statusCode int, envelope models.Envelope) {
	envelope.Success = true
	writeEnvelope(w, r, statusCode, envelope)
}

// SendError writes an error envelope built from an ErrorResponse.
func SendError(w http.ResponseWriter, r *http.Request, errResp *models.ErrorResponse) {
	writeEnvelope(w, r, errResp.StatusCode, models.Envelope{
		Success: false,
		Message: errResp.Message,
		Code:    errResp.Code,
		Errors:  errResp.Errors,
	})
}

// SendErrorResponse writes an error envelope with a status code and message.
func SendErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	SendError(w, r, models.NewErrorResponse(statusCode, message))
}

// AsErrorResponse unwraps err into an ErrorResponse; anything else becomes a 500
// carrying fallback as its message.
func AsErrorResponse(err error, fallback string) *models.ErrorResponse {
	var errResp *models.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp
	}
	return models.NewErrorResponse(http.StatusInternalServerError, fallback)
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, statusCode int, envelope models.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		logger.FromContext(r.Context()).Warn("failed to write response", zap.Int("status", statusCode), zap.Error(err))
	}
}

// ParseLimitOffset parses limit and offset query parameters.
func ParseLimitOffset(limitStr, offsetStr string) (int, int, error) {
	var limit, offset int
	var err error

	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > 50 {
			return 0, 0, fmt.Errorf("invalid limit parameter, must be a positive integer [0:50]")
		}
	} else {
		limit = 5
	}

	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset parameter, must be a non-negative integer")
		}
	} else {
		offset = 0
	}

	return limit, offset, nil
}

// ParseID parses a positive numeric path parameter.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// Contains reports whether target is one of the allowed values; used to check
// status transitions against a transition table.
func Contains[T comparable](allowed []T, target T) bool {
	for _, v := range allowed {
		if v == target {
			return true
		}
	}
	return false
}
