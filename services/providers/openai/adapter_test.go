package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/knowledge-engine/services/providers"
)

func TestEmbeddingAdapter_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"alpha", "beta"}, req.Input)

		// returned out of order on purpose, adapter must sort by index
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"index":1,"embedding":[0.3,0.4,0.0]},
			{"index":0,"embedding":[1.0,0.0,0.0]}
		]}`))
	}))
	defer server.Close()

	adapter := NewEmbeddingAdapter(Config{APIKey: "test-key", BaseURL: server.URL, Dimension: 3})

	vectors, err := adapter.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1.0, 0.0, 0.0}, vectors[0])
	assert.Equal(t, []float32{0.3, 0.4, 0.0}, vectors[1])
}

func TestEmbeddingAdapter_EmptyInput(t *testing.T) {
	adapter := NewEmbeddingAdapter(Config{APIKey: "test-key", Dimension: 3})

	vectors, err := adapter.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbeddingAdapter_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1.0,0.0]}]}`))
	}))
	defer server.Close()

	adapter := NewEmbeddingAdapter(Config{APIKey: "test-key", BaseURL: server.URL, Dimension: 3})

	_, err := adapter.Embed(context.Background(), []string{"alpha"})
	require.Error(t, err)
	assert.Equal(t, providers.CodeBadResponse, providers.GetCode(err))
}

func TestEmbeddingAdapter_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1.0,0.0,0.0]}]}`))
	}))
	defer server.Close()

	adapter := NewEmbeddingAdapter(Config{APIKey: "test-key", BaseURL: server.URL, Dimension: 3})

	_, err := adapter.Embed(context.Background(), []string{"alpha", "beta"})
	require.Error(t, err)
	assert.Equal(t, providers.CodeBadResponse, providers.GetCode(err))
}

func TestEmbeddingAdapter_RetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1.0,0.0,0.0]}]}`))
	}))
	defer server.Close()

	adapter := NewEmbeddingAdapter(Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Dimension:  3,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})

	vectors, err := adapter.Embed(context.Background(), []string{"alpha"})
	require.NoError(t, err)
	assert.Len(t, vectors, 1)
	assert.Equal(t, 2, attempts)
}

func TestEmbeddingAdapter_AuthFailureNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	adapter := NewEmbeddingAdapter(Config{
		APIKey:     "bad-key",
		BaseURL:    server.URL,
		Dimension:  3,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})

	_, err := adapter.Embed(context.Background(), []string{"alpha"})
	require.Error(t, err)
	assert.Equal(t, providers.CodeAuthFailure, providers.GetCode(err))
	assert.Equal(t, 1, attempts)
}

func TestGenerationAdapter_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[0].Content, "some retrieved passage")
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, "what is alpha?", req.Messages[1].Content)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Alpha is the first letter."}}]}`))
	}))
	defer server.Close()

	adapter := NewGenerationAdapter(Config{APIKey: "test-key", BaseURL: server.URL, Model: "deepseek-chat"})

	answer, err := adapter.Generate(context.Background(), "Answer from the context.", "some retrieved passage", "what is alpha?")
	require.NoError(t, err)
	assert.Equal(t, "Alpha is the first letter.", answer)
}

func TestGenerationAdapter_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	adapter := NewGenerationAdapter(Config{APIKey: "test-key", BaseURL: server.URL})

	_, err := adapter.Generate(context.Background(), "instructions", "", "query")
	require.Error(t, err)
	assert.Equal(t, providers.CodeBadResponse, providers.GetCode(err))
}
