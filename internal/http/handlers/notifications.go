package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"studioshot/internal/domain"
)

type notificationItem struct {
	ID            string    `json:"id"`
	ProducedCount int       `json:"producedCount"`
	Message       string    `json:"message"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NotificationsList returns the caller's notification feed, newest first.
func (a *App) NotificationsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "missing user context")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	notifications, err := a.Notifications.ListNotifications(r.Context(), userID, limit)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "failed to load notifications")
		return
	}
	items := make([]notificationItem, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, notificationItem{
			ID:            n.ID,
			ProducedCount: n.ProducedCount,
			Message:       n.Message,
			Read:          n.Read,
			CreatedAt:     n.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// NotificationRead marks one notification as read.
func (a *App) NotificationRead(w http.ResponseWriter, r *http.Request) {
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
	if err := a.Notifications.MarkNotificationRead(r.Context(), id, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "notification not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "failed to update notification")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"read": true})
}
