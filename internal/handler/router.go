package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/hohotang/shortlink-core/internal/middleware"
	"github.com/hohotang/shortlink-core/internal/models"
	"github.com/hohotang/shortlink-core/internal/utils"
	"go.uber.org/zap"
)

// NewRouter wires the middleware chain and routes
func NewRouter(h *Handler, log *zap.Logger, ids *utils.RequestIDGenerator) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID(ids))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recoverer(log))

	// Routes
	r.Get("/healthz", h.Health)
	r.Post("/api/shorten", h.Shorten)
	r.Get(models.RedirectPrefix+"{code}", h.Redirect)

	return r
}
