package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"studioshot/internal/http/handlers"
	"studioshot/internal/middleware"
)

// NewRouter assembles the public API surface. staticDir, when non-empty,
// mounts the filesystem store's objects under /static for development.
func NewRouter(app *handlers.App, lookup middleware.CountryLookup, staticDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.AllowedOrigins),
		middleware.I18N("en", lookup),
	)

	r.Get("/healthz", app.Health)

	if staticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.Config.JWTSecret))
		r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))

		r.Post("/generate", app.Generate)

		r.Route("/generations", func(r chi.Router) {
			r.Get("/", app.GenerationsList)
			r.Get("/export", app.GenerationsExport)
			r.Post("/bulk-delete", app.GenerationsBulkDelete)
			r.Delete("/{id}", app.GenerationDelete)
		})

		r.Get("/credits", app.Credits)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", app.NotificationsList)
			r.Post("/{id}/read", app.NotificationRead)
		})
	})

	return r
}
