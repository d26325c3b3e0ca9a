package handler

import (
	"net/http"

	"github.com/hohotang/shortlink-core/internal/logger"
	"go.uber.org/zap"
)

// HealthResponse reports liveness and the backing store
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

// Health handles GET /healthz by pinging the store
func (h *Handler) Health(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	if err := h.service.Ping(ctx); err != nil {
		logger.Ctx(ctx).Error("Health check failed", zap.Error(err))
		writeJSON(ctx, w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Storage: h.storageType.String()})
		return
	}

	writeJSON(ctx, w, http.StatusOK, HealthResponse{Status: "ok", Storage: h.storageType.String()})
}
