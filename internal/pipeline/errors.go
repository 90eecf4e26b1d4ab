package pipeline

import "fmt"

// Kind classifies a terminal pipeline failure. Every kind maps to exactly
// one error event on the wire and none of them bill the user.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindAuth                Kind = "auth"
	KindDailyCap            Kind = "daily_cap"
	KindInsufficientCredits Kind = "insufficient_credits"
	KindUpstream            Kind = "upstream"
	KindPersistence         Kind = "persistence"
	KindNoResults           Kind = "no_results"
)

// Error is the terminal outcome of a failed pipeline run.
type Error struct {
	Kind             Kind
	Message          string
	CreditsNeeded    int
	CreditsAvailable int
	cause            error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func validationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func authError() *Error {
	return &Error{Kind: KindAuth, Message: "Unauthorized"}
}

func dailyCapError(cap int) *Error {
	return &Error{Kind: KindDailyCap, Message: fmt.Sprintf("Daily limit reached (%d images/day)", cap)}
}

func insufficientCreditsError(needed, available int) *Error {
	return &Error{
		Kind:             KindInsufficientCredits,
		Message:          "Insufficient credits",
		CreditsNeeded:    needed,
		CreditsAvailable: available,
	}
}

func upstreamError(message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Message: message, cause: cause}
}

func persistenceError(message string, cause error) *Error {
	return &Error{Kind: KindPersistence, Message: message, cause: cause}
}

func noResultsError() *Error {
	return &Error{Kind: KindNoResults, Message: "Failed to generate any images. Please try again."}
}
