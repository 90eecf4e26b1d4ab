package architect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studioshot/internal/providers/vision"
)

const geminiDefaultTimeout = 15 * time.Second

// GeminiOptions configures the Gemini-backed architect.
type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Fallback   Architect
}

// GeminiArchitect asks Gemini for a JSON blueprint and falls back to the
// configured Architect when the call fails.
type GeminiArchitect struct {
	apiKey   string
	model    string
	baseURL  string
	client   *http.Client
	fallback Architect
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// NewGeminiArchitect validates options and builds the architect.
func NewGeminiArchitect(opts GeminiOptions) (*GeminiArchitect, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	return &GeminiArchitect{
		apiKey:   opts.APIKey,
		model:    model,
		baseURL:  baseURL,
		client:   client,
		fallback: opts.Fallback,
	}, nil
}

// Compose requests one blueprint for image index of quantity.
func (g *GeminiArchitect) Compose(ctx context.Context, analysis *vision.Analysis, userPrompt string, quantity, index int) (*Blueprint, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{{
				Text: buildComposePrompt(analysis, userPrompt, quantity, index),
			}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      0.8,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return g.useFallback(ctx, analysis, userPrompt, quantity, index, err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return g.useFallback(ctx, analysis, userPrompt, quantity, index, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return g.useFallback(ctx, analysis, userPrompt, quantity, index, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return g.useFallback(ctx, analysis, userPrompt, quantity, index, fmt.Errorf("gemini status %d", resp.StatusCode))
	}
	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return g.useFallback(ctx, analysis, userPrompt, quantity, index, err)
	}
	text := g.extractText(out)
	if text == "" {
		return g.useFallback(ctx, analysis, userPrompt, quantity, index, errors.New("empty candidate"))
	}
	blueprint, err := parseModelPayload[Blueprint](text)
	if err != nil {
		return g.useFallback(ctx, analysis, userPrompt, quantity, index, err)
	}
	if strings.TrimSpace(blueprint.Scene) == "" {
		return g.useFallback(ctx, analysis, userPrompt, quantity, index, errors.New("blank scene"))
	}
	return &blueprint, nil
}

func (g *GeminiArchitect) useFallback(ctx context.Context, analysis *vision.Analysis, userPrompt string, quantity, index int, cause error) (*Blueprint, error) {
	if g.fallback == nil {
		return nil, fmt.Errorf("architect: gemini compose: %w", cause)
	}
	return g.fallback.Compose(ctx, analysis, userPrompt, quantity, index)
}

func (g *GeminiArchitect) extractText(out geminiResponse) string {
	for _, candidate := range out.Candidates {
		for _, part := range candidate.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

var _ Architect = (*GeminiArchitect)(nil)
