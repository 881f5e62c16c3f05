// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocalbridge/platform/orchestrator/llm"
)

func TestNormalize(t *testing.T) {
	resp := &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "  hello there \n"}},
		},
		Usage: openai.CompletionUsage{PromptTokens: 120, CompletionTokens: 35},
	}

	got, err := Normalize("vendorA", resp, 40*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "hello there", got.Text)
	assert.Equal(t, 120, got.TokensIn)
	assert.Equal(t, 35, got.TokensOut)
	assert.Equal(t, int64(40), got.LatencyMs())
}

func TestNormalizeNoChoices(t *testing.T) {
	_, err := Normalize("vendorA", &openai.ChatCompletion{}, 0)
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)

	_, err = Normalize("vendorA", nil, 0)
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	a, err := New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultName, a.Name())
}

func TestCallAgainstServer(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Hi!"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	a, err := New(Config{APIKey: "test", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	resp, err := a.Call(context.Background(), llm.VendorRequest{
		SystemPrompt: "be nice",
		UserMessage:  "hello",
		History:      []llm.Turn{{Role: llm.RoleUser, Content: "hey"}, {Role: llm.RoleAssistant, Content: "yo"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi!", resp.Text)
	assert.Equal(t, 12, resp.TokensIn)
	assert.Equal(t, 3, resp.TokensOut)

	msgs, ok := body["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, msgs, 4)
	assert.Equal(t, "gpt-4o-mini", body["model"])
}

func TestCallMapsStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
	}))
	defer srv.Close()

	a, err := New(Config{APIKey: "test", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	_, err = a.Call(context.Background(), llm.VendorRequest{UserMessage: "hello"})
	require.Error(t, err)

	var vendorErr *llm.VendorError
	require.True(t, errors.As(err, &vendorErr))
	assert.Equal(t, http.StatusServiceUnavailable, vendorErr.StatusCode)
	assert.True(t, vendorErr.Temporary)
	assert.Equal(t, http.StatusServiceUnavailable, llm.StatusCode(err))
}
