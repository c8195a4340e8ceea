package upload

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the upload API and serves stored uploads under
// the configured public prefix.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/api/upload", h.Upload)
	r.Get("/api/uploads", h.ListUploads)
	r.Get(h.cfg.PublicPrefix+"/*", h.ServeUpload)
}
