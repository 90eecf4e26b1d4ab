package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func geminiBody(t *testing.T, text string) io.ReadCloser {
	t.Helper()
	payload := map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"role":  "model",
				"parts": []map[string]any{{"text": text}},
			},
		}},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return io.NopCloser(bytes.NewReader(raw))
}

func TestGeminiAnalyzeDecodesStructuredAnalysis(t *testing.T) {
	var captured []byte
	analyzer, err := NewGeminiAnalyzer(GeminiOptions{
		APIKey: "key",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			captured, _ = io.ReadAll(r.Body)
			if got := r.Header.Get("x-goog-api-key"); got != "key" {
				t.Fatalf("api key header = %q", got)
			}
			text := `{"product":"ceramic mug","category":"kitchenware","colors":["white"],"materials":["ceramic"],"distinctive_features":"hand-painted rim","suggested_settings":["white sweep"]}`
			return &http.Response{StatusCode: http.StatusOK, Body: geminiBody(t, text)}, nil
		})},
	})
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}

	analysis, err := analyzer.Analyze(context.Background(), []byte{0x89, 0x50}, "image/png")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analysis.Product != "ceramic mug" || analysis.Distinctive != "hand-painted rim" {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}

	// The image goes inline alongside the instruction.
	var req struct {
		Contents []struct {
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"contents"`
	}
	if err := json.Unmarshal(captured, &req); err != nil {
		t.Fatalf("decode captured request: %v", err)
	}
	parts := req.Contents[0].Parts
	if parts[0].InlineData == nil || parts[0].InlineData.MimeType != "image/png" {
		t.Fatalf("expected inline image first, got %+v", parts)
	}
	if parts[1].Text == "" {
		t.Fatal("expected instruction text part")
	}
}

func TestGeminiAnalyzeToleratesCodeFence(t *testing.T) {
	analyzer, err := NewGeminiAnalyzer(GeminiOptions{
		APIKey: "key",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			text := "```json\n{\"product\":\"tote bag\"}\n```"
			return &http.Response{StatusCode: http.StatusOK, Body: geminiBody(t, text)}, nil
		})},
	})
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}
	analysis, err := analyzer.Analyze(context.Background(), []byte{1}, "image/jpeg")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analysis.Product != "tote bag" {
		t.Fatalf("unexpected product: %q", analysis.Product)
	}
}

func TestGeminiAnalyzeSurfacesAPIError(t *testing.T) {
	analyzer, err := NewGeminiAnalyzer(GeminiOptions{
		APIKey: "key",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			body := io.NopCloser(strings.NewReader(`{"error":{"code":429,"message":"quota exceeded"}}`))
			return &http.Response{StatusCode: http.StatusTooManyRequests, Body: body}, nil
		})},
	})
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}
	_, err = analyzer.Analyze(context.Background(), []byte{1}, "image/png")
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected api error message, got %v", err)
	}
}
