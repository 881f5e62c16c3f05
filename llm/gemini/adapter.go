// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package gemini adapts the Google Gen AI generateContent API to the
// llm.Adapter contract. It backs the "vendorB" provider.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"vocalbridge/platform/orchestrator/llm"
)

const (
	// DefaultName is the provider name agents reference.
	DefaultName = "vendorB"

	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "gemini-2.5-flash"

	defaultTemperature float32 = 0.7
	defaultMaxTokens   int32   = 500
)

// Config configures the adapter.
type Config struct {
	Name        string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int32
}

// Adapter calls Gemini generateContent.
type Adapter struct {
	client      *genai.Client
	name        string
	model       string
	temperature float32
	maxTokens   int32
}

// New creates an adapter.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	a := &Adapter{
		client:      client,
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

	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(a.temperature),
		MaxOutputTokens: a.maxTokens,
	}
	if req.SystemPrompt != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, buildContents(req), genCfg)
	if err != nil {
		return nil, a.wrapError(err)
	}

	return Normalize(a.name, resp, time.Since(start))
}

func buildContents(req llm.VendorRequest) []*genai.Content {
	turns := req.Turns()
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := genai.Role(genai.RoleUser)
		if turn.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	return contents
}

// Normalize converts a generateContent response into the normalized shape.
func Normalize(provider string, resp *genai.GenerateContentResponse, latency time.Duration) (*llm.NormalizedResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &llm.VendorError{Provider: provider, Err: llm.ErrEmptyResponse}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	out := &llm.NormalizedResponse{
		Text:    strings.TrimSpace(sb.String()),
		Latency: latency,
	}
	if resp.UsageMetadata != nil {
		out.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		out.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

func (a *Adapter) wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.NewVendorError(a.name, apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return llm.NewVendorError(a.name, apiErrPtr.Code, err)
	}
	return &llm.VendorError{Provider: a.name, Temporary: true, Err: err}
}

var _ llm.Adapter = (*Adapter)(nil)
