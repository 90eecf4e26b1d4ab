package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"studioshot/internal/domain"
)

// DBTX is the minimal pgx surface the query layer needs. Both *pgxpool.Pool
// and test stubs satisfy it.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// GetQuota fetches the user's credit balance and free-trial counter.
func (q *Queries) GetQuota(ctx context.Context, userID string) (domain.UserQuotaState, error) {
	row := q.db.QueryRow(ctx, `
SELECT credits_balance, free_trial_used
FROM user_quotas
WHERE user_id = $1
`, userID)
	var quota domain.UserQuotaState
	if err := row.Scan(&quota.CreditsBalance, &quota.FreeTrialUsed); err != nil {
		if err == pgx.ErrNoRows {
			return domain.UserQuotaState{}, domain.ErrNotFound
		}
		return domain.UserQuotaState{}, fmt.Errorf("get quota: %w", err)
	}
	return quota, nil
}

// UpdateQuota writes back the balances after a ledger commit. The upsert
// covers accounts whose first generation runs before any row exists.
func (q *Queries) UpdateQuota(ctx context.Context, userID string, quota domain.UserQuotaState) error {
	_, err := q.db.Exec(ctx, `
INSERT INTO user_quotas (user_id, credits_balance, free_trial_used, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (user_id) DO UPDATE
SET credits_balance = EXCLUDED.credits_balance,
    free_trial_used = EXCLUDED.free_trial_used,
    updated_at = now()
`, userID, quota.CreditsBalance, quota.FreeTrialUsed)
	if err != nil {
		return fmt.Errorf("update quota: %w", err)
	}
	return nil
}

// InsertGeneration records a successfully synthesized image and returns the
// server-assigned id and timestamp.
func (q *Queries) InsertGeneration(ctx context.Context, rec *domain.GenerationRecord) (string, time.Time, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO generations (id, user_id, original_image_key, generated_image_key, prompt)
VALUES (gen_random_uuid(), $1, $2, $3, $4)
RETURNING id, created_at
`, rec.UserID, rec.OriginalImageKey, rec.GeneratedImageKey, rec.Prompt)
	var id string
	var createdAt time.Time
	if err := row.Scan(&id, &createdAt); err != nil {
		return "", time.Time{}, fmt.Errorf("insert generation: %w", err)
	}
	return id, createdAt, nil
}

// CountGenerationsSince counts the user's generation records created at or
// after the given instant. The daily cap is computed from this.
func (q *Queries) CountGenerationsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	row := q.db.QueryRow(ctx, `
SELECT COUNT(*)
FROM generations
WHERE user_id = $1 AND created_at >= $2
`, userID, since)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count generations: %w", err)
	}
	return count, nil
}

// ListGenerations returns the user's records, newest first.
func (q *Queries) ListGenerations(ctx context.Context, userID string, limit int) ([]domain.GenerationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.db.Query(ctx, `
SELECT id, user_id, original_image_key, generated_image_key, prompt, created_at
FROM generations
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()
	var items []domain.GenerationRecord
	for rows.Next() {
		var rec domain.GenerationRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.OriginalImageKey, &rec.GeneratedImageKey, &rec.Prompt, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

// GetGeneration fetches one record scoped to its owner.
func (q *Queries) GetGeneration(ctx context.Context, id, userID string) (*domain.GenerationRecord, error) {
	row := q.db.QueryRow(ctx, `
SELECT id, user_id, original_image_key, generated_image_key, prompt, created_at
FROM generations
WHERE id = $1 AND user_id = $2
`, id, userID)
	var rec domain.GenerationRecord
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.OriginalImageKey, &rec.GeneratedImageKey, &rec.Prompt, &rec.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get generation: %w", err)
	}
	return &rec, nil
}

// DeleteGeneration removes one record scoped to its owner.
func (q *Queries) DeleteGeneration(ctx context.Context, id, userID string) error {
	tag, err := q.db.Exec(ctx, `
DELETE FROM generations
WHERE id = $1 AND user_id = $2
`, id, userID)
	if err != nil {
		return fmt.Errorf("delete generation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteGenerations removes a batch of records scoped to their owner and
// reports how many rows were removed.
func (q *Queries) DeleteGenerations(ctx context.Context, ids []string, userID string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := q.db.Exec(ctx, `
DELETE FROM generations
WHERE id = ANY($1) AND user_id = $2
`, ids, userID)
	if err != nil {
		return 0, fmt.Errorf("bulk delete generations: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// InsertNotification stores a session-completion notification.
func (q *Queries) InsertNotification(ctx context.Context, n *domain.Notification) (string, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO notifications (id, user_id, produced_count, message)
VALUES (gen_random_uuid(), $1, $2, $3)
RETURNING id
`, n.UserID, n.ProducedCount, n.Message)
	var id string
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("insert notification: %w", err)
	}
	return id, nil
}

// ListNotifications returns the user's notifications, newest first.
func (q *Queries) ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := q.db.Query(ctx, `
SELECT id, user_id, produced_count, message, read, created_at
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	var items []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.ProducedCount, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

// MarkNotificationRead flips the read flag for one notification.
func (q *Queries) MarkNotificationRead(ctx context.Context, id, userID string) error {
	tag, err := q.db.Exec(ctx, `
UPDATE notifications
SET read = true
WHERE id = $1 AND user_id = $2
`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
