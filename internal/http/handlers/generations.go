package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"studioshot/internal/domain"
	"studioshot/pkg/zip"
)

// GenerationsList returns the caller's history, newest first, with fresh
// signed URLs: stored keys never leave the server.
func (a *App) GenerationsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "missing user context")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	records, err := a.Generations.ListGenerations(r.Context(), userID, limit)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "failed to load generations")
		return
	}

	items := make([]domain.GeneratedImage, 0, len(records))
	for _, rec := range records {
		url, err := a.Store.SignedURL(r.Context(), a.Config.GeneratedBucket, rec.GeneratedImageKey, a.Config.SignedURLTTL)
		if err != nil {
			a.Logger.Warn().Err(err).Str("key", rec.GeneratedImageKey).Msg("sign url failed, skipping item")
			continue
		}
		items = append(items, domain.GeneratedImage{
			ID:        rec.ID,
			ImageURL:  url,
			Prompt:    rec.Prompt,
			CreatedAt: rec.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// GenerationDelete removes one record and its stored object.
func (a *App) GenerationDelete(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "missing user context")
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "id required")
		return
	}
	rec, err := a.Generations.GetGeneration(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "generation not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "failed to load generation")
		return
	}
	if err := a.Generations.DeleteGeneration(r.Context(), id, userID); err != nil {
		a.error(w, http.StatusInternalServerError, "failed to delete generation")
		return
	}
	// Object cleanup is best effort; the row is already gone.
	if err := a.Store.Delete(r.Context(), a.Config.GeneratedBucket, rec.GeneratedImageKey); err != nil {
		a.Logger.Warn().Err(err).Str("key", rec.GeneratedImageKey).Msg("delete stored object failed")
	}
	a.json(w, http.StatusOK, map[string]any{"deleted": 1})
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// GenerationsBulkDelete removes a batch of the caller's records.
func (a *App) GenerationsBulkDelete(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "missing user context")
		return
	}
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	ids := make([]string, 0, len(req.IDs))
	for _, id := range req.IDs {
		if strings.TrimSpace(id) != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		a.error(w, http.StatusBadRequest, "ids required")
		return
	}

	// Collect keys before the rows disappear so objects can be cleaned up.
	var keys []string
	for _, id := range ids {
		rec, err := a.Generations.GetGeneration(r.Context(), id, userID)
		if err != nil {
			continue
		}
		keys = append(keys, rec.GeneratedImageKey)
	}

	deleted, err := a.Generations.DeleteGenerations(r.Context(), ids, userID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "failed to delete generations")
		return
	}
	for _, key := range keys {
		if err := a.Store.Delete(r.Context(), a.Config.GeneratedBucket, key); err != nil {
			a.Logger.Warn().Err(err).Str("key", key).Msg("delete stored object failed")
		}
	}
	a.json(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// GenerationsExport streams the caller's generated images as a zip archive.
func (a *App) GenerationsExport(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "missing user context")
		return
	}
	records, err := a.Generations.ListGenerations(r.Context(), userID, 0)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "failed to load generations")
		return
	}
	if len(records) == 0 {
		a.error(w, http.StatusNotFound, "nothing to export")
		return
	}

	var assets []zip.Asset
	for _, rec := range records {
		data, err := a.Store.Get(r.Context(), a.Config.GeneratedBucket, rec.GeneratedImageKey)
		if err != nil {
			a.Logger.Warn().Err(err).Str("key", rec.GeneratedImageKey).Msg("load object for export failed")
			continue
		}
		assets = append(assets, zip.Asset{Filename: exportFilename(rec), Data: data})
	}
	archive := zip.ArchiveAssets(assets)

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename=studioshot-export.zip`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func exportFilename(rec domain.GenerationRecord) string {
	key := rec.GeneratedImageKey
	ext := ".png"
	if idx := strings.LastIndex(key, "."); idx >= 0 {
		ext = key[idx:]
	}
	return fmt.Sprintf("%s-%s%s", rec.CreatedAt.Format("20060102"), rec.ID, ext)
}
