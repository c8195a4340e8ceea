package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	chatapi "github.com/finestate/hub-backend/internal/api/chat"
	"github.com/finestate/hub-backend/internal/api/docs"
	"github.com/finestate/hub-backend/internal/api/middleware"
	uploadapi "github.com/finestate/hub-backend/internal/api/upload"
	"github.com/finestate/hub-backend/internal/config"
)

const requestTimeout = 60 * time.Second

// SetupRouter creates and configures the HTTP router
func SetupRouter(
	cfg *config.Config,
	uploadHandler *uploadapi.Handler,
	chatHandler *chatapi.Handler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Chat streams replies and manages its own timeouts
	chatapi.RegisterRoutes(r, chatHandler, requestTimeout)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		})

		docs.RegisterRoutes(r)

		uploadapi.RegisterRoutes(r, uploadHandler)
	})

	return r
}
