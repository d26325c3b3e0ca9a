package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Redirect handles GET /s/{code} with a 302 to the stored path
func (h *Handler) Redirect(w http.ResponseWriter, req *http.Request) {
	code := chi.URLParam(req, "code")

	path, err := h.service.Resolve(req.Context(), code)
	if err != nil {
		writeError(req.Context(), w, err)
		return
	}

	// http.Redirect would clean the path; the stored text is sent as is
	w.Header().Set("Location", path)
	w.WriteHeader(http.StatusFound)
}
