package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/rs/zerolog"

	"studioshot/internal/domain"
	"studioshot/internal/infra"
	"studioshot/internal/middleware"
	"studioshot/internal/pipeline"
	"studioshot/internal/providers/architect"
	"studioshot/internal/providers/synth"
	"studioshot/internal/providers/vision"
	"studioshot/internal/rategate"
)

type fakeQuotas struct {
	quota   domain.UserQuotaState
	getErr  error
	updated *domain.UserQuotaState
}

func (f *fakeQuotas) GetQuota(ctx context.Context, userID string) (domain.UserQuotaState, error) {
	return f.quota, f.getErr
}

func (f *fakeQuotas) UpdateQuota(ctx context.Context, userID string, quota domain.UserQuotaState) error {
	f.updated = &quota
	return nil
}

type fakeGenerations struct {
	records    []domain.GenerationRecord
	countToday int
	listErr    error
	deletedIDs []string
}

func (f *fakeGenerations) InsertGeneration(ctx context.Context, rec *domain.GenerationRecord) (string, time.Time, error) {
	id := fmt.Sprintf("gen-%d", len(f.records)+1)
	stored := *rec
	stored.ID = id
	stored.CreatedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f.records = append(f.records, stored)
	return id, stored.CreatedAt, nil
}

func (f *fakeGenerations) CountGenerationsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return f.countToday, nil
}

func (f *fakeGenerations) ListGenerations(ctx context.Context, userID string, limit int) ([]domain.GenerationRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.records, nil
}

func (f *fakeGenerations) GetGeneration(ctx context.Context, id, userID string) (*domain.GenerationRecord, error) {
	for _, rec := range f.records {
		if rec.ID == id && rec.UserID == userID {
			out := rec
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeGenerations) DeleteGeneration(ctx context.Context, id, userID string) error {
	for i, rec := range f.records {
		if rec.ID == id && rec.UserID == userID {
			f.records = append(f.records[:i], f.records[i+1:]...)
			f.deletedIDs = append(f.deletedIDs, id)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeGenerations) DeleteGenerations(ctx context.Context, ids []string, userID string) (int, error) {
	deleted := 0
	for _, id := range ids {
		if err := f.DeleteGeneration(ctx, id, userID); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

type fakeNotifications struct {
	items []domain.Notification
}

func (f *fakeNotifications) InsertNotification(ctx context.Context, n *domain.Notification) (string, error) {
	stored := *n
	stored.ID = fmt.Sprintf("notif-%d", len(f.items)+1)
	f.items = append(f.items, stored)
	return stored.ID, nil
}

func (f *fakeNotifications) ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	return f.items, nil
}

func (f *fakeNotifications) MarkNotificationRead(ctx context.Context, id, userID string) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Read = true
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakeStore struct {
	objects map[string][]byte
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	f.objects[bucket+"/"+key] = data
	return key, nil
}

func (f *fakeStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (f *fakeStore) SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return "https://cdn.test/" + bucket + "/" + key, nil
}

func (f *fakeStore) Delete(ctx context.Context, bucket, key string) error {
	f.deleted = append(f.deleted, bucket+"/"+key)
	delete(f.objects, bucket+"/"+key)
	return nil
}

type fakeVision struct{}

func (fakeVision) Analyze(ctx context.Context, image []byte, mime string) (*vision.Analysis, error) {
	return &vision.Analysis{Product: "leather wallet"}, nil
}

type fakeSynth struct{}

func (fakeSynth) Synthesize(ctx context.Context, original []byte, mime, prompt string, tier domain.QualityTier) (*synth.Output, error) {
	return &synth.Output{Data: []byte{0xCD}, MIME: "image/png"}, nil
}

type testApp struct {
	app           *App
	quotas        *fakeQuotas
	generations   *fakeGenerations
	notifications *fakeNotifications
	store         *fakeStore
}

func newTestApp(quota domain.UserQuotaState) *testApp {
	cfg := &infra.Config{
		JWTSecret:       "test-secret",
		GeneratedBucket: "generated-images",
		UploadBucket:    "user-uploads",
		SignedURLTTL:    time.Hour,
		MaxUploadBytes:  4 << 20,
		DailyCap:        20,
		GenerateTimeout: 30 * time.Second,
		RateLimitPerMin: 100,
	}
	ta := &testApp{
		quotas:        &fakeQuotas{quota: quota},
		generations:   &fakeGenerations{},
		notifications: &fakeNotifications{},
		store:         newFakeStore(),
	}
	orch := pipeline.NewOrchestrator(pipeline.Options{
		Quotas:          ta.quotas,
		Generations:     ta.generations,
		Notifications:   ta.notifications,
		Store:           ta.store,
		Vision:          fakeVision{},
		Architect:       architect.NewStaticArchitect(),
		Synth:           fakeSynth{},
		Gate:            rategate.New(ta.generations, cfg.DailyCap),
		UploadBucket:    cfg.UploadBucket,
		GeneratedBucket: cfg.GeneratedBucket,
		SignedURLTTL:    cfg.SignedURLTTL,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		Logger:          zerolog.Nop(),
	})
	ta.app = &App{
		Quotas:        ta.quotas,
		Generations:   ta.generations,
		Notifications: ta.notifications,
		Store:         ta.store,
		Pipeline:      orch,
		Config:        cfg,
		Logger:        zerolog.Nop(),
	}
	return ta
}

// authed attaches the user to the request context the way the JWT
// middleware does.
func authed(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

func doRequest(handler http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler(rec, r)
	return rec
}
