// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package bedrock adapts Anthropic models hosted on AWS Bedrock to the
// llm.Adapter contract. It backs the optional "vendorC" provider.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"vocalbridge/platform/orchestrator/llm"
)

const (
	DefaultName   = "vendorC"
	DefaultRegion = "us-east-1"
	DefaultModel  = "anthropic.claude-3-5-sonnet-20240620-v1:0"

	anthropicVersion = "bedrock-2023-05-31"
	defaultMaxTokens = 500
)

// Config configures the adapter. Static keys are optional; without them the
// default AWS credential chain (IAM role, env, shared config) is used.
type Config struct {
	Name            string
	Region          string
	Model           string
	AccessKeyID     string
	SecretAccessKey string
	MaxTokens       int
	Temperature     float64
}

type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Adapter invokes Bedrock models with the Anthropic messages body.
type Adapter struct {
	client      invoker
	name        string
	model       string
	maxTokens   int
	temperature float64
}

// New loads AWS configuration and creates the adapter.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for Bedrock (region: %s): %w", cfg.Region, err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		o.RetryMaxAttempts = 1
	})
	return newWithClient(client, cfg), nil
}

func newWithClient(client invoker, cfg Config) *Adapter {
	a := &Adapter{
		client:      client,
		name:        cfg.Name,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
	if a.name == "" {
		a.name = DefaultName
	}
	if a.model == "" {
		a.model = DefaultModel
	}
	if a.maxTokens == 0 {
		a.maxTokens = defaultMaxTokens
	}
	if a.temperature == 0 {
		a.temperature = 0.7
	}
	return a
}

// Name implements llm.Adapter.
func (a *Adapter) Name() string { return a.name }

// Call implements llm.Adapter.
func (a *Adapter) Call(ctx context.Context, req llm.VendorRequest) (*llm.NormalizedResponse, error) {
	start := time.Now()

	body, err := json.Marshal(a.buildRequestBody(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := a.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(a.model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, a.wrapError(err)
	}

	return Normalize(a.name, output.Body, time.Since(start))
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type requestBody struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	System           string    `json:"system,omitempty"`
	Messages         []message `json:"messages"`
}

func (a *Adapter) buildRequestBody(req llm.VendorRequest) requestBody {
	turns := req.Turns()
	msgs := make([]message, 0, len(turns))
	for _, turn := range turns {
		msgs = append(msgs, message{Role: string(turn.Role), Content: turn.Content})
	}
	return requestBody{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        a.maxTokens,
		Temperature:      a.temperature,
		System:           req.SystemPrompt,
		Messages:         msgs,
	}
}

// Normalize parses an Anthropic messages response body.
func Normalize(provider string, body []byte, latency time.Duration) (*llm.NormalizedResponse, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &llm.VendorError{Provider: provider, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	if len(resp.Content) == 0 {
		return nil, &llm.VendorError{Provider: provider, Err: llm.ErrEmptyResponse}
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &llm.NormalizedResponse{
		Text:      strings.TrimSpace(sb.String()),
		TokensIn:  resp.Usage.InputTokens,
		TokensOut: resp.Usage.OutputTokens,
		Latency:   latency,
	}, nil
}

func (a *Adapter) wrapError(err error) error {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return llm.NewVendorError(a.name, respErr.HTTPStatusCode(), err)
	}
	return &llm.VendorError{Provider: a.name, Temporary: true, Err: err}
}

var _ llm.Adapter = (*Adapter)(nil)
