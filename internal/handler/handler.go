package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hohotang/shortlink-core/internal/logger"
	"github.com/hohotang/shortlink-core/internal/models"
	"github.com/hohotang/shortlink-core/internal/service"
	"go.uber.org/zap"
)

// ShortLinkService is the part of service.URLService the HTTP handlers use
type ShortLinkService interface {
	Allocate(ctx context.Context, target, origin string) (*models.Allocation, error)
	Resolve(ctx context.Context, code string) (string, error)
	Ping(ctx context.Context) error
}

// Handler serves the short link HTTP API
type Handler struct {
	service        ShortLinkService
	storageType    models.StorageType
	trustForwarded bool
}

// New creates a Handler. trustForwarded lets X-Forwarded-Proto decide the request origin.
func New(svc ShortLinkService, storageType models.StorageType, trustForwarded bool) *Handler {
	return &Handler{
		service:        svc,
		storageType:    storageType,
		trustForwarded: trustForwarded,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Ctx(ctx).Warn("Failed to encode response", zap.Error(err))
	}
}

// writeError maps service errors onto HTTP status codes
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if ve, ok := service.IsValidation(err); ok {
		writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: ve.Reason})
		return
	}

	switch {
	case errors.Is(err, service.ErrAllocationExhausted):
		writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Error: service.ErrAllocationExhausted.Error()})
	case errors.Is(err, service.ErrStoreUnavailable):
		writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Error: service.ErrStoreUnavailable.Error()})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(ctx, w, http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		logger.Ctx(ctx).Error("Unhandled error", zap.Error(err))
		writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
