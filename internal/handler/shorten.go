package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/hohotang/shortlink-core/internal/logger"
	"github.com/hohotang/shortlink-core/internal/models"
	"github.com/hohotang/shortlink-core/internal/utils"
	"go.uber.org/zap"
)

const maxShortenBody = 1 << 20

// ShortenRequest is the JSON body of POST /api/shorten
type ShortenRequest struct {
	URL string `json:"url"`
}

// ShortenResponse is returned for created and reused codes
type ShortenResponse struct {
	Code     string `json:"code"`
	ShortURL string `json:"short_url"`
	Path     string `json:"path"`
}

// Shorten handles POST /api/shorten. It accepts a JSON body or a url form field,
// answering 201 for a new code and 200 when an existing one is reused.
func (h *Handler) Shorten(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	req.Body = http.MaxBytesReader(w, req.Body, maxShortenBody)

	target := h.readTarget(req)
	origin := utils.RequestOrigin(req, h.trustForwarded)

	alloc, err := h.service.Allocate(ctx, target, origin)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if alloc.Created() {
		status = http.StatusCreated
	}

	writeJSON(ctx, w, status, ShortenResponse{
		Code:     alloc.Code,
		ShortURL: models.ShortURL(alloc.Code),
		Path:     alloc.Path,
	})
}

// readTarget extracts the url field. Unreadable bodies yield "", which the service rejects as missing.
func (h *Handler) readTarget(req *http.Request) string {
	log := logger.Ctx(req.Context())

	if isJSON(req.Header.Get("Content-Type")) {
		var body ShortenRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			log.Debug("Failed to decode JSON request", zap.Error(err))
			return ""
		}
		return body.URL
	}

	// FormValue parses both urlencoded and multipart bodies
	if err := req.ParseMultipartForm(maxShortenBody); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		log.Debug("Failed to parse form request", zap.Error(err))
	}
	return req.PostFormValue("url")
}

// isJSON reports whether contentType is application/json or a +json subtype
func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
