// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"vocalbridge/platform/orchestrator/llm"
)

func TestNormalize(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "Hello "}, {Text: "world"}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     321,
			CandidatesTokenCount: 45,
		},
	}

	got, err := Normalize("vendorB", resp, 80*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", got.Text)
	assert.Equal(t, 321, got.TokensIn)
	assert.Equal(t, 45, got.TokensOut)
	assert.Equal(t, int64(80), got.LatencyMs())
}

func TestNormalizeWithoutUsage(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: "x"}}}}},
	}
	got, err := Normalize("vendorB", resp, 0)
	require.NoError(t, err)
	assert.Zero(t, got.TokensIn)
	assert.Zero(t, got.TokensOut)
}

func TestNormalizeEmpty(t *testing.T) {
	_, err := Normalize("vendorB", &genai.GenerateContentResponse{}, 0)
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestBuildContentsMapsRoles(t *testing.T) {
	contents := buildContents(llm.VendorRequest{
		UserMessage: "now",
		History:     []llm.Turn{{Role: llm.RoleUser, Content: "a"}, {Role: llm.RoleAssistant, Content: "b"}},
	})
	require.Len(t, contents, 3)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, "now", contents[2].Parts[0].Text)
}

func TestWrapError(t *testing.T) {
	a := &Adapter{name: "vendorB"}

	err := a.wrapError(fmt.Errorf("call: %w", genai.APIError{Code: 429, Message: "quota"}))
	var vendorErr *llm.VendorError
	require.True(t, errors.As(err, &vendorErr))
	assert.Equal(t, 429, vendorErr.StatusCode)
	assert.True(t, vendorErr.Temporary)

	err = a.wrapError(errors.New("connection reset"))
	require.True(t, errors.As(err, &vendorErr))
	assert.Equal(t, 0, vendorErr.StatusCode)
	assert.Equal(t, http.StatusInternalServerError, llm.StatusCode(err))
}

func TestCallAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.5-flash:generateContent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "Bonjour"}]}}],
			"usageMetadata": {"promptTokenCount": 9, "candidatesTokenCount": 2, "totalTokenCount": 11}
		}`))
	}))
	defer srv.Close()

	a, err := New(context.Background(), Config{APIKey: "test", BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := a.Call(context.Background(), llm.VendorRequest{SystemPrompt: "sys", UserMessage: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", resp.Text)
	assert.Equal(t, 9, resp.TokensIn)
	assert.Equal(t, 2, resp.TokensOut)
	assert.Equal(t, DefaultName, a.Name())
}
