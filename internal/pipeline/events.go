package pipeline

import "studioshot/internal/domain"

// Wire event names. The stream carries zero or more progress events followed
// by exactly one terminal event (error or complete).
const (
	EventProgress = "progress"
	EventError    = "error"
	EventComplete = "complete"
)

// Progress steps.
const (
	StepAnalyzing  = "analyzing"
	StepGenerating = "generating"
)

// ProgressPayload is the data of a progress event.
type ProgressPayload struct {
	Step    string `json:"step"`
	Image   int    `json:"image,omitempty"`
	Total   int    `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorPayload is the data of the terminal error event. The credit fields
// are present only on quota denials so the caller can render an upsell path.
type ErrorPayload struct {
	Error            string `json:"error"`
	CreditsNeeded    *int   `json:"creditsNeeded,omitempty"`
	CreditsAvailable *int   `json:"creditsAvailable,omitempty"`
}

// CompletePayload is the data of the terminal complete event.
type CompletePayload struct {
	Images           []domain.GeneratedImage `json:"images"`
	UsedFreeTrial    bool                    `json:"usedFreeTrial"`
	CreditsRemaining int                     `json:"creditsRemaining"`
	FreeTrialUsed    int                     `json:"freeTrialUsed"`
}

// EventSink receives the ordered event sequence for one request. The SSE
// writer implements it on the server; tests substitute a recorder.
type EventSink interface {
	Emit(event string, data any) error
}

func errorPayloadFor(e *Error) ErrorPayload {
	payload := ErrorPayload{Error: e.Message}
	if e.Kind == KindInsufficientCredits {
		needed := e.CreditsNeeded
		available := e.CreditsAvailable
		payload.CreditsNeeded = &needed
		payload.CreditsAvailable = &available
	}
	return payload
}
