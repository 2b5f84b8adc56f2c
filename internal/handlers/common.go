package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/senyabanana/surplus-market/internal/logger"
	"github.com/senyabanana/surplus-market/internal/middleware"
	"github.com/senyabanana/surplus-market/internal/models"
	"github.com/senyabanana/surplus-market/internal/utils"
)

const maxBodyBytes = 1 << 20

// decodeBody reads a JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.SendError(w, r, models.NewValidationError("invalid request body: "+err.Error()))
		return false
	}
	return true
}

// pathID parses a numeric URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := utils.ParseID(chi.URLParam(r, name))
	if err != nil {
		utils.SendError(w, r, models.NewValidationError(err.Error()))
		return 0, false
	}
	return id, true
}

// caller returns the identity attached by the auth middleware. Anonymous
// callers get the zero identity.
func caller(r *http.Request) models.Identity {
	id, _ := middleware.IdentityFrom(r.Context())
	return id
}

// sendServiceError writes err as an envelope. Server-side failures are logged.
func sendServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	errResp := utils.AsErrorResponse(err, fallback)
	log := logger.FromContext(r.Context())
	if errResp.StatusCode >= http.StatusInternalServerError {
		log.Error(fallback, zap.Error(err))
	} else {
		log.Debug("request refused", zap.Int("status", errResp.StatusCode), zap.String("code", errResp.Code), zap.String("reason", errResp.Message))
	}
	utils.SendError(w, r, errResp)
}
