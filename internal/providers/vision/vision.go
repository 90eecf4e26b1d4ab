// Package vision analyzes the uploaded product photo once per session and
// produces the structured description the prompt architect works from.
package vision

import "context"

// Analysis is the structured description of the uploaded product photo.
type Analysis struct {
	Product           string   `json:"product"`
	Category          string   `json:"category"`
	Colors            []string `json:"colors"`
	Materials         []string `json:"materials"`
	Distinctive       string   `json:"distinctive_features"`
	SuggestedSettings []string `json:"suggested_settings"`
}

// Analyzer inspects image bytes and returns the analysis.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mime string) (*Analysis, error)
}
