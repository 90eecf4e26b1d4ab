// Package pipeline contains the generation orchestrator: the state machine
// that takes one uploaded product photo through analysis, per-image prompt
// composition and synthesis, persistence, and exactly-once billing, while
// emitting ordered progress events to the caller.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studioshot/internal/domain"
	"studioshot/internal/ledger"
	"studioshot/internal/providers/architect"
	"studioshot/internal/providers/synth"
	"studioshot/internal/providers/vision"
	"studioshot/internal/rategate"
	"studioshot/internal/storage"
)

const (
	// MinQuantity and MaxQuantity bound how many variants one request may ask for.
	MinQuantity = 1
	MaxQuantity = 10

	// DefaultMaxUploadBytes caps the original upload at 4 MiB.
	DefaultMaxUploadBytes = 4 << 20

	// DefaultSignedURLTTL is how long generated-image access URLs stay valid.
	DefaultSignedURLTTL = time.Hour
)

// Request carries the validated inputs of one generation session.
type Request struct {
	Image    []byte
	MIME     string
	Prompt   string
	Quality  domain.QualityTier
	Quantity int
	Locale   string
}

// Options wires the orchestrator's collaborators.
type Options struct {
	Quotas          domain.QuotaRepository
	Generations     domain.GenerationRepository
	Notifications   domain.NotificationRepository
	Store           storage.ObjectStore
	Vision          vision.Analyzer
	Architect       architect.Architect
	Synth           synth.Synthesizer
	Gate            *rategate.Gate
	UploadBucket    string
	GeneratedBucket string
	SignedURLTTL    time.Duration
	MaxUploadBytes  int64
	Logger          zerolog.Logger
}

// Orchestrator runs one generation session per call. It holds no per-request
// state; everything request-scoped lives in the session and dies with it.
type Orchestrator struct {
	quotas          domain.QuotaRepository
	generations     domain.GenerationRepository
	notifications   domain.NotificationRepository
	store           storage.ObjectStore
	vision          vision.Analyzer
	architect       architect.Architect
	synth           synth.Synthesizer
	gate            *rategate.Gate
	uploadBucket    string
	generatedBucket string
	signedURLTTL    time.Duration
	maxUploadBytes  int64
	logger          zerolog.Logger
}

// NewOrchestrator applies defaults and builds the orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = DefaultSignedURLTTL
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.UploadBucket == "" {
		opts.UploadBucket = "user-uploads"
	}
	if opts.GeneratedBucket == "" {
		opts.GeneratedBucket = "generated-images"
	}
	return &Orchestrator{
		quotas:          opts.Quotas,
		generations:     opts.Generations,
		notifications:   opts.Notifications,
		store:           opts.Store,
		vision:          opts.Vision,
		architect:       opts.Architect,
		synth:           opts.Synth,
		gate:            opts.Gate,
		uploadBucket:    opts.UploadBucket,
		generatedBucket: opts.GeneratedBucket,
		signedURLTTL:    opts.SignedURLTTL,
		maxUploadBytes:  opts.MaxUploadBytes,
		logger:          opts.Logger,
	}
}

// session is the ephemeral, request-scoped state of one generation run. It
// is never persisted and is gone when Run returns.
type session struct {
	userID      string
	req         Request
	quota       domain.UserQuotaState
	decision    ledger.Decision
	originalKey string
	analysis    *vision.Analysis
	results     []domain.GeneratedImage
}

// Run executes the full state machine for one request and emits the event
// sequence on sink. The returned error is the terminal pipeline error, nil
// on success; it has already been reported to the caller through the sink.
func (o *Orchestrator) Run(ctx context.Context, userID string, req Request, sink EventSink) error {
	s := &session{userID: userID, req: req}

	if perr := o.validate(&s.req); perr != nil {
		return o.fail(sink, perr)
	}
	if strings.TrimSpace(userID) == "" {
		return o.fail(sink, authError())
	}

	// Quota precheck. Nothing is charged here; the decision is held in the
	// session and settled at finalize from actual outcomes. A user without a
	// quota row is a brand-new account: zero credits, full trial.
	quota, err := o.quotas.GetQuota(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return o.fail(sink, persistenceError("Failed to load account balance", err))
	}
	s.quota = quota
	s.decision = ledger.Precheck(quota, s.req.Quantity)
	if !s.decision.Sufficient {
		return o.fail(sink, insufficientCreditsError(s.decision.CreditsNeeded, quota.CreditsBalance))
	}

	// Daily hard cap, independent of balance.
	gateRes, err := o.gate.Check(ctx, userID)
	if err != nil {
		return o.fail(sink, persistenceError("Failed to check daily usage", err))
	}
	if !gateRes.Allowed {
		return o.fail(sink, dailyCapError(o.gate.Cap()))
	}

	// Persist the original before any model call. Nothing to roll back on
	// failure since nothing was charged.
	originalKey := fmt.Sprintf("%s/%s%s", userID, uuid.NewString(), extensionForMIME(s.req.MIME))
	storedKey, err := o.store.Put(ctx, o.uploadBucket, originalKey, s.req.Image, s.req.MIME)
	if err != nil {
		return o.fail(sink, persistenceError("Failed to store uploaded image", err))
	}
	s.originalKey = storedKey

	// Vision analysis happens once per session.
	if err := sink.Emit(EventProgress, ProgressPayload{
		Step:    StepAnalyzing,
		Message: analyzingMessage(s.req.Locale),
	}); err != nil {
		o.logger.Debug().Err(err).Msg("pipeline: caller went away before analysis")
		return upstreamError("client disconnected", err)
	}
	analysis, err := o.vision.Analyze(ctx, s.req.Image, s.req.MIME)
	if err != nil {
		return o.fail(sink, upstreamError("Failed to analyze image", err))
	}
	s.analysis = analysis

	if perr := o.generateLoop(ctx, s, sink); perr != nil {
		return o.fail(sink, perr)
	}

	return o.finalize(ctx, s, sink)
}

// generateLoop runs the per-image sequence. Images are produced one at a
// time: the architect needs a stable (index, total) ordering for scene
// diversity, and sequential completion keeps billing free of interleaving.
func (o *Orchestrator) generateLoop(ctx context.Context, s *session, sink EventSink) *Error {
	total := s.req.Quantity
	for i := 0; i < total; i++ {
		// Cooperative cancellation: stop before starting another image. An
		// image already in flight runs to completion and is billed.
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) && len(s.results) == 0 {
				return upstreamError("Generation timed out", err)
			}
			o.logger.Info().Int("produced", len(s.results)).Msg("pipeline: canceled, skipping remaining images")
			break
		}

		if err := sink.Emit(EventProgress, ProgressPayload{
			Step:    StepGenerating,
			Image:   i + 1,
			Total:   total,
			Message: generatingMessage(s.req.Locale, i+1, total),
		}); err != nil {
			o.logger.Debug().Err(err).Int("image", i+1).Msg("pipeline: caller went away mid-loop")
			break
		}

		img, err := o.generateOne(ctx, s, i)
		if err != nil {
			// The first image failing means the whole request is broken:
			// abort with nothing charged. Later failures only cost their
			// own slot.
			if i == 0 {
				return upstreamError("Failed to generate image", err)
			}
			o.logger.Warn().Err(err).Int("image", i+1).Int("total", total).Msg("pipeline: image failed, continuing")
			continue
		}
		s.results = append(s.results, *img)
	}
	return nil
}

func (o *Orchestrator) generateOne(ctx context.Context, s *session, index int) (*domain.GeneratedImage, error) {
	blueprint, err := o.architect.Compose(ctx, s.analysis, s.req.Prompt, s.req.Quantity, index)
	if err != nil {
		return nil, fmt.Errorf("compose prompt: %w", err)
	}
	prompt := architect.FormatPrompt(blueprint)

	out, err := o.synth.Synthesize(ctx, s.req.Image, s.req.MIME, prompt, s.req.Quality)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	genKey := fmt.Sprintf("%s/%s-generated%s", s.userID, uuid.NewString(), extensionForMIME(out.MIME))
	storedKey, err := o.store.Put(ctx, o.generatedBucket, genKey, out.Data, out.MIME)
	if err != nil {
		return nil, fmt.Errorf("store generated image: %w", err)
	}

	id, createdAt, err := o.generations.InsertGeneration(ctx, &domain.GenerationRecord{
		UserID:            s.userID,
		OriginalImageKey:  s.originalKey,
		GeneratedImageKey: storedKey,
		Prompt:            prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("insert generation record: %w", err)
	}

	signedURL, err := o.store.SignedURL(ctx, o.generatedBucket, storedKey, o.signedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("sign generated image url: %w", err)
	}

	return &domain.GeneratedImage{
		ID:        id,
		ImageURL:  signedURL,
		Prompt:    prompt,
		CreatedAt: createdAt,
	}, nil
}

// finalize settles billing from actual outcomes and emits the terminal
// complete event. Billing happens exactly once, here, never optimistically.
func (o *Orchestrator) finalize(ctx context.Context, s *session, sink EventSink) error {
	if len(s.results) == 0 {
		return o.fail(sink, noResultsError())
	}

	// Billing for images that were actually produced must land even when
	// the caller canceled or the overall deadline fired mid-loop.
	ctx = context.WithoutCancel(ctx)

	updated := ledger.Commit(s.quota, len(s.results), s.decision.FreeTrialToUse)
	if err := o.quotas.UpdateQuota(ctx, s.userID, updated); err != nil {
		return o.fail(sink, persistenceError("Failed to finalize billing", err))
	}
	trialUsedNow := updated.FreeTrialUsed - s.quota.FreeTrialUsed

	if err := sink.Emit(EventComplete, CompletePayload{
		Images:           s.results,
		UsedFreeTrial:    trialUsedNow > 0,
		CreditsRemaining: updated.CreditsBalance,
		FreeTrialUsed:    updated.FreeTrialUsed,
	}); err != nil {
		o.logger.Debug().Err(err).Msg("pipeline: caller went away before completion event")
	}

	// The notification is created only after the complete event has been
	// flushed so the stream is never behind other channels.
	if o.notifications != nil {
		if _, err := o.notifications.InsertNotification(ctx, &domain.Notification{
			UserID:        s.userID,
			ProducedCount: len(s.results),
			Message:       fmt.Sprintf("Your studio set is ready: %d image(s) generated.", len(s.results)),
		}); err != nil {
			o.logger.Warn().Err(err).Msg("pipeline: insert notification failed")
		}
	}
	return nil
}

func (o *Orchestrator) validate(req *Request) *Error {
	if len(req.Image) == 0 {
		return validationError("Missing image")
	}
	if int64(len(req.Image)) > o.maxUploadBytes {
		return validationError(fmt.Sprintf(
			"Image is too large. Maximum size is %dMB. Please compress your image and try again.",
			o.maxUploadBytes/(1024*1024)))
	}
	if !strings.HasPrefix(req.MIME, "image/") {
		return validationError("Invalid file type. Please upload an image file.")
	}
	if req.Quantity == 0 {
		req.Quantity = MinQuantity
	}
	if req.Quantity < MinQuantity || req.Quantity > MaxQuantity {
		return validationError(fmt.Sprintf("Quantity must be between %d and %d", MinQuantity, MaxQuantity))
	}
	if req.Quality == "" {
		req.Quality = domain.QualitySuperHigh
	}
	if !req.Quality.Valid() {
		return validationError("Unsupported quality tier")
	}
	return nil
}

// fail emits the single terminal error event and hands the error back for
// logging. Emission failures are ignored: the caller is already gone.
func (o *Orchestrator) fail(sink EventSink, perr *Error) error {
	if err := sink.Emit(EventError, errorPayloadFor(perr)); err != nil {
		o.logger.Debug().Err(err).Str("kind", string(perr.Kind)).Msg("pipeline: terminal event not delivered")
	}
	return perr
}

func extensionForMIME(mime string) string {
	switch strings.ToLower(mime) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
