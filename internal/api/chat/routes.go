package chat

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes registers chat session routes. The streaming send route is
// kept out of the request timeout, the rest is bounded by requestTimeout.
func RegisterRoutes(r chi.Router, h *Handler, requestTimeout time.Duration) {
	r.Route("/api/chat/sessions", func(r chi.Router) {
		r.Post("/{id}/messages", h.SendMessage)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(requestTimeout))
			r.Post("/", h.CreateSession)
			r.Get("/{id}", h.GetSession)
			r.Delete("/{id}/messages", h.ResetSession)
			r.Get("/{id}/transcript", h.ExportTranscript)
		})
	})
}
