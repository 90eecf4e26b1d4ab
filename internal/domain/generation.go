package domain

import "time"

// GenerationRecord is the durable row written for every successfully
// synthesized image. Immutable after insert; deletion happens only through
// the dashboard endpoints.
type GenerationRecord struct {
	ID                string
	UserID            string
	OriginalImageKey  string
	GeneratedImageKey string
	Prompt            string
	CreatedAt         time.Time
}

// GeneratedImage is the per-image tuple accumulated during one session and
// returned to the caller in the terminal complete event.
type GeneratedImage struct {
	ID        string    `json:"id"`
	ImageURL  string    `json:"imageUrl"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"createdAt"`
}

// QualityTier selects the synthesis model.
type QualityTier string

const (
	QualityHigh      QualityTier = "high"
	QualitySuperHigh QualityTier = "super-high"
)

// Valid reports whether the tier is one of the supported values.
func (t QualityTier) Valid() bool {
	return t == QualityHigh || t == QualitySuperHigh
}
