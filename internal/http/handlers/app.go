package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"studioshot/internal/domain"
	"studioshot/internal/infra"
	"studioshot/internal/middleware"
	"studioshot/internal/pipeline"
	"studioshot/internal/storage"
)

// App is the handler container. Repositories are interfaces so tests can
// substitute stubs without a database.
type App struct {
	Quotas        domain.QuotaRepository
	Generations   domain.GenerationRepository
	Notifications domain.NotificationRepository
	Store         storage.ObjectStore
	Pipeline      *pipeline.Orchestrator
	Config        *infra.Config
	Logger        zerolog.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]string{"error": message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
