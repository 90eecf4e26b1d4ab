// Package architect turns the vision analysis and the user's free-text
// intent into one unique rendering instruction per output image.
package architect

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"studioshot/internal/providers/vision"
)

const (
	staticProviderName = "static"
	geminiProviderName = "gemini"
	openAIProviderName = "openai"
)

// RenderPrefs are the structural constraints stated ahead of the free-form
// scene description.
type RenderPrefs struct {
	Camera      string `json:"camera"`
	Lighting    string `json:"lighting"`
	AspectRatio string `json:"aspect_ratio"`
	Style       string `json:"output_style"`
}

// Blueprint is one image's rendering instruction: a scene description plus
// the structured render preferences.
type Blueprint struct {
	Scene string      `json:"image_prompt"`
	Prefs RenderPrefs `json:"render_prefs"`
}

// Architect composes a unique blueprint for output image index out of
// quantity. Implementations must vary the scene with the index so a batch
// does not repeat itself.
type Architect interface {
	Compose(ctx context.Context, analysis *vision.Analysis, userPrompt string, quantity, index int) (*Blueprint, error)
}

// FormatPrompt builds the final text sent to the synthesizer. The fixed-order
// specification goes first so structural constraints are always stated before
// the scene and cannot be diluted by a long free-text prompt.
func FormatPrompt(b *Blueprint) string {
	spec := fmt.Sprintf("Shot: %s; Lighting: %s; Aspect ratio: %s; Style: %s.",
		defaultString(b.Prefs.Camera, "85mm product shot"),
		defaultString(b.Prefs.Lighting, "soft studio lighting"),
		defaultString(b.Prefs.AspectRatio, "1:1"),
		defaultString(b.Prefs.Style, "photorealistic"),
	)
	return strings.TrimSpace(spec + " " + strings.TrimSpace(b.Scene))
}

func defaultString(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

// StaticArchitect composes blueprints without an upstream model. It rotates
// through a fixed set of studio settings keyed by the image index, which
// keeps batches varied when no prompt provider is configured.
type StaticArchitect struct{}

func NewStaticArchitect() *StaticArchitect {
	return &StaticArchitect{}
}

var staticSettings = []struct {
	scene    string
	camera   string
	lighting string
	style    string
}{
	{"on a seamless white sweep with a soft shadow under the product", "100mm macro, f/8", "large softbox overhead", "clean e-commerce"},
	{"on a slab of dark slate with scattered water droplets", "85mm, f/5.6", "hard rim light from the left", "moody editorial"},
	{"on a warm oak tabletop beside linen fabric", "50mm, f/4", "golden-hour window light", "lifestyle catalog"},
	{"floating against a pastel gradient backdrop", "70mm, f/11", "even wraparound light", "minimalist poster"},
	{"on a mirrored surface with a subtle reflection", "90mm, f/8", "twin strip lights", "premium showroom"},
}

func (s *StaticArchitect) Compose(ctx context.Context, analysis *vision.Analysis, userPrompt string, quantity, index int) (*Blueprint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	setting := staticSettings[index%len(staticSettings)]
	titler := cases.Title(language.Und)
	product := "Product"
	if analysis != nil && strings.TrimSpace(analysis.Product) != "" {
		product = titler.String(analysis.Product)
	}
	scene := fmt.Sprintf("%s placed %s, variation %d of %d.", product, setting.scene, index+1, quantity)
	if analysis != nil && strings.TrimSpace(analysis.Distinctive) != "" {
		scene += " Keep these details exactly as in the original: " + strings.TrimSpace(analysis.Distinctive) + "."
	}
	if strings.TrimSpace(userPrompt) != "" {
		scene += " Customer direction: " + strings.TrimSpace(userPrompt) + "."
	}
	return &Blueprint{
		Scene: scene,
		Prefs: RenderPrefs{
			Camera:      setting.camera,
			Lighting:    setting.lighting,
			AspectRatio: "1:1",
			Style:       setting.style,
		},
	}, nil
}

var _ Architect = (*StaticArchitect)(nil)
