package handlers

import (
	"errors"
	"net/http"

	"studioshot/internal/domain"
)

// Credits reports the caller's balances. A user without a quota row is a
// brand-new account: zero credits, full trial.
func (a *App) Credits(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "missing user context")
		return
	}
	quota, err := a.Quotas.GetQuota(r.Context(), userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusInternalServerError, "failed to load balance")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"credits":            quota.CreditsBalance,
		"freeTrialUsed":      quota.FreeTrialUsed,
		"freeTrialRemaining": quota.FreeTrialRemaining(),
	})
}
