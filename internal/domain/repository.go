package domain

import (
	"context"
	"time"
)

// QuotaRepository reads and writes the per-user quota balances.
type QuotaRepository interface {
	GetQuota(ctx context.Context, userID string) (UserQuotaState, error)
	UpdateQuota(ctx context.Context, userID string, quota UserQuotaState) error
}

// GenerationRepository persists generation records and serves the counts the
// daily cap is computed from.
type GenerationRepository interface {
	InsertGeneration(ctx context.Context, rec *GenerationRecord) (string, time.Time, error)
	CountGenerationsSince(ctx context.Context, userID string, since time.Time) (int, error)
	ListGenerations(ctx context.Context, userID string, limit int) ([]GenerationRecord, error)
	GetGeneration(ctx context.Context, id, userID string) (*GenerationRecord, error)
	DeleteGeneration(ctx context.Context, id, userID string) error
	DeleteGenerations(ctx context.Context, ids []string, userID string) (int, error)
}

// NotificationRepository persists session-completion notifications.
type NotificationRepository interface {
	InsertNotification(ctx context.Context, n *Notification) (string, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
}
