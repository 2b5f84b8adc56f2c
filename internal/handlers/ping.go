package handlers

import (
	"fmt"
	"net/http"

	"github.com/senyabanana/surplus-market/internal/logger"

	"go.uber.org/zap"
)

// PingHandler answers GET /api/ping.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, "ok"); err != nil {
		logger.FromContext(r.Context()).Warn("failed to write ping response", zap.Error(err))
	}
}
