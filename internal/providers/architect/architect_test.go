package architect

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"studioshot/internal/providers/vision"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestFormatPromptSpecComesFirst(t *testing.T) {
	b := &Blueprint{
		Scene: "Bottle on white sweep.",
		Prefs: RenderPrefs{
			Camera:      "100mm macro",
			Lighting:    "softbox",
			AspectRatio: "4:5",
			Style:       "editorial",
		},
	}
	got := FormatPrompt(b)
	want := "Shot: 100mm macro; Lighting: softbox; Aspect ratio: 4:5; Style: editorial. Bottle on white sweep."
	if got != want {
		t.Fatalf("FormatPrompt = %q, want %q", got, want)
	}
}

func TestFormatPromptFillsDefaults(t *testing.T) {
	got := FormatPrompt(&Blueprint{Scene: "A scene."})
	if !strings.HasPrefix(got, "Shot: 85mm product shot; Lighting: soft studio lighting; Aspect ratio: 1:1; Style: photorealistic.") {
		t.Fatalf("missing default spec prefix: %q", got)
	}
}

func TestStaticArchitectVariesByIndex(t *testing.T) {
	s := NewStaticArchitect()
	analysis := &vision.Analysis{Product: "ceramic mug"}
	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		b, err := s.Compose(context.Background(), analysis, "", 4, i)
		if err != nil {
			t.Fatalf("Compose(%d) returned error: %v", i, err)
		}
		if seen[b.Scene] {
			t.Fatalf("duplicate scene at index %d: %q", i, b.Scene)
		}
		seen[b.Scene] = true
	}
}

func TestStaticArchitectIncludesUserPrompt(t *testing.T) {
	s := NewStaticArchitect()
	b, err := s.Compose(context.Background(), nil, "autumn theme", 1, 0)
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	if !strings.Contains(b.Scene, "autumn theme") {
		t.Fatalf("scene missing user prompt: %q", b.Scene)
	}
}

func TestGeminiArchitectParsesBlueprint(t *testing.T) {
	payload := `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"image_prompt\":\"Mug on slate.\",\"render_prefs\":{\"camera\":\"85mm\",\"lighting\":\"rim light\",\"aspect_ratio\":\"1:1\",\"output_style\":\"moody\"}}"}]}}]}`
	a, err := NewGeminiArchitect(GeminiOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(payload), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewGeminiArchitect returned error: %v", err)
	}
	b, err := a.Compose(context.Background(), &vision.Analysis{Product: "mug"}, "", 2, 1)
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	if b.Scene != "Mug on slate." {
		t.Fatalf("Scene = %q", b.Scene)
	}
	if b.Prefs.Lighting != "rim light" {
		t.Fatalf("Lighting = %q", b.Prefs.Lighting)
	}
}

func TestGeminiArchitectFallsBackOnTransportError(t *testing.T) {
	a, err := NewGeminiArchitect(GeminiOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("boom")
		})},
		Fallback: NewStaticArchitect(),
	})
	if err != nil {
		t.Fatalf("NewGeminiArchitect returned error: %v", err)
	}
	b, err := a.Compose(context.Background(), &vision.Analysis{Product: "mug"}, "", 1, 0)
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	if b.Scene == "" {
		t.Fatal("fallback produced empty scene")
	}
}

func TestGeminiArchitectNoFallbackSurfacesError(t *testing.T) {
	a, err := NewGeminiArchitect(GeminiOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("boom")
		})},
	})
	if err != nil {
		t.Fatalf("NewGeminiArchitect returned error: %v", err)
	}
	if _, err := a.Compose(context.Background(), nil, "", 1, 0); err == nil {
		t.Fatal("expected error without fallback")
	}
}
