// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package openai adapts the OpenAI chat completions API to the llm.Adapter
// contract. It backs the "vendorA" provider.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"vocalbridge/platform/orchestrator/llm"
)

const (
	// DefaultName is the provider name agents reference.
	DefaultName = "vendorA"

	// DefaultModel is used when Config.Model is empty.
	DefaultModel = openai.ChatModelGPT4oMini

	defaultTemperature = 0.7
	defaultMaxTokens   = 500
)

// Config configures the adapter.
type Config struct {
	Name        string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int64
}

// Adapter calls OpenAI chat completions.
type Adapter struct {
	client      openai.Client
	name        string
	model       string
	temperature float64
	maxTokens   int64
}

// New creates an adapter. SDK-level retries are disabled; the resilient
// caller owns the retry policy.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	a := &Adapter{
		client:      openai.NewClient(opts...),
		name:        cfg.Name,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
	if a.name == "" {
		a.name = DefaultName
	}
	if a.model == "" {
		a.model = DefaultModel
	}
	if a.temperature == 0 {
		a.temperature = defaultTemperature
	}
	if a.maxTokens == 0 {
		a.maxTokens = defaultMaxTokens
	}
	return a, nil
}

// Name implements llm.Adapter.
func (a *Adapter) Name() string { return a.name }

// Call implements llm.Adapter.
func (a *Adapter) Call(ctx context.Context, req llm.VendorRequest) (*llm.NormalizedResponse, error) {
	start := time.Now()

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(a.model),
		Messages:    buildMessages(req),
		Temperature: openai.Float(a.temperature),
		MaxTokens:   openai.Int(a.maxTokens),
	})
	if err != nil {
		return nil, a.wrapError(err)
	}

	return Normalize(a.name, resp, time.Since(start))
}

func buildMessages(req llm.VendorRequest) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(req.SystemPrompt))
	}
	for _, turn := range req.Turns() {
		if turn.Role == llm.RoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(turn.Content))
			continue
		}
		msgs = append(msgs, openai.UserMessage(turn.Content))
	}
	return msgs
}

// Normalize converts a chat completion into the normalized response shape.
func Normalize(provider string, resp *openai.ChatCompletion, latency time.Duration) (*llm.NormalizedResponse, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, &llm.VendorError{Provider: provider, Err: llm.ErrEmptyResponse}
	}

	return &llm.NormalizedResponse{
		Text:      strings.TrimSpace(resp.Choices[0].Message.Content),
		TokensIn:  int(resp.Usage.PromptTokens),
		TokensOut: int(resp.Usage.CompletionTokens),
		Latency:   latency,
	}, nil
}

func (a *Adapter) wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return llm.NewVendorError(a.name, apiErr.StatusCode, err)
	}
	return &llm.VendorError{Provider: a.name, Temporary: true, Err: err}
}

var _ llm.Adapter = (*Adapter)(nil)
