// Package synth wraps the image-to-image synthesis collaborator. Given the
// original product photo and a composed prompt it produces zero or one
// output image.
package synth

import (
	"context"
	"errors"

	"studioshot/internal/domain"
)

// ErrNoImage is returned when the upstream call succeeded but produced no
// image payload. The orchestrator treats it as a per-image failure.
var ErrNoImage = errors.New("synth: no image in response")

// Output is one synthesized image.
type Output struct {
	Data []byte
	MIME string
}

// Synthesizer renders one studio variant of the original image.
type Synthesizer interface {
	Synthesize(ctx context.Context, original []byte, mime, prompt string, tier domain.QualityTier) (*Output, error)
}
