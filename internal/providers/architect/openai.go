package architect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"studioshot/internal/providers/vision"
)

// OpenAIOptions configures the OpenAI-backed architect.
type OpenAIOptions struct {
	APIKey   string
	Model    string
	BaseURL  string
	Org      string
	Fallback Architect
}

// OpenAIArchitect composes blueprints through a chat completion with a JSON
// response format, falling back like the Gemini variant.
type OpenAIArchitect struct {
	client   *openai.Client
	model    string
	fallback Architect
}

// NewOpenAIArchitect validates options and builds the architect.
func NewOpenAIArchitect(opts OpenAIOptions) (*OpenAIArchitect, error) {
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
	return &OpenAIArchitect{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		fallback: opts.Fallback,
	}, nil
}

// Compose requests one blueprint for image index of quantity.
func (o *OpenAIArchitect) Compose(ctx context.Context, analysis *vision.Analysis, userPrompt string, quantity, index int) (*Blueprint, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: buildComposePrompt(analysis, userPrompt, quantity, index),
		}},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.8,
	})
	if err != nil {
		return o.useFallback(ctx, analysis, userPrompt, quantity, index, err)
	}
	if len(resp.Choices) == 0 {
		return o.useFallback(ctx, analysis, userPrompt, quantity, index, errors.New("empty response"))
	}
	blueprint, err := parseModelPayload[Blueprint](resp.Choices[0].Message.Content)
	if err != nil {
		return o.useFallback(ctx, analysis, userPrompt, quantity, index, err)
	}
	if strings.TrimSpace(blueprint.Scene) == "" {
		return o.useFallback(ctx, analysis, userPrompt, quantity, index, errors.New("blank scene"))
	}
	return &blueprint, nil
}

func (o *OpenAIArchitect) useFallback(ctx context.Context, analysis *vision.Analysis, userPrompt string, quantity, index int, cause error) (*Blueprint, error) {
	if o.fallback == nil {
		return nil, fmt.Errorf("architect: openai compose: %w", cause)
	}
	return o.fallback.Compose(ctx, analysis, userPrompt, quantity, index)
}

var _ Architect = (*OpenAIArchitect)(nil)
