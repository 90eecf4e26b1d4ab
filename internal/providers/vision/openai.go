package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIOptions configures the OpenAI-backed analyzer.
type OpenAIOptions struct {
	APIKey  string
	Model   string
	BaseURL string
	Org     string
}

// OpenAIAnalyzer analyzes the photo through a vision-capable chat model.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
}

// NewOpenAIAnalyzer validates options and builds the analyzer.
func NewOpenAIAnalyzer(opts OpenAIOptions) (*OpenAIAnalyzer, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = openai.GPT4oMini
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.Org != "" {
		cfg.OrgID = opts.Org
	}
	return &OpenAIAnalyzer{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// Analyze sends the image as a data URI chat part and decodes the JSON reply.
func (o *OpenAIAnalyzer) Analyze(ctx context.Context, image []byte, mime string) (*Analysis, error) {
	dataURI := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(image))
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURI}},
				{Type: openai.ChatMessagePartTypeText, Text: analysisInstruction},
			},
		}},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("vision: invoke openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("vision: empty openai response")
	}
	analysis, err := parsePayload[Analysis](resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("vision: parse analysis: %w", err)
	}
	if analysis.Product == "" {
		analysis.Product = "product"
	}
	return &analysis, nil
}

var _ Analyzer = (*OpenAIAnalyzer)(nil)
