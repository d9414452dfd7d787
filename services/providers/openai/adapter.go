// Package openai implements the embedding and generation providers against any
// OpenAI-compatible API (OpenAI, DeepSeek and similar gateways differ only in
// base URL and model name).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/upb/knowledge-engine/services/providers"
)

const providerName = "openai"

// Config holds the shared adapter configuration
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimension  int
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = time.Second
	}
}

// EmbeddingAdapter implements providers.EmbeddingProvider
type EmbeddingAdapter struct {
	config     Config
	httpClient *http.Client
}

// NewEmbeddingAdapter creates a new embedding adapter
func NewEmbeddingAdapter(config Config) *EmbeddingAdapter {
	config.applyDefaults()
	return &EmbeddingAdapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the provider name
func (a *EmbeddingAdapter) Name() string {
	return providerName
}

// Dimension returns the fixed vector dimension produced by the provider
func (a *EmbeddingAdapter) Dimension() int {
	return a.config.Dimension
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per input text, in input order
func (a *EmbeddingAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var vectors [][]float32
	retryCfg := providers.RetryConfig{MaxRetries: a.config.MaxRetries, Delay: a.config.RetryDelay}

	err := providers.Do(ctx, retryCfg, func(ctx context.Context) error {
		body, err := postJSON(ctx, a.httpClient, a.config, "/embeddings", embeddingRequest{
			Model: a.config.Model,
			Input: texts,
		})
		if err != nil {
			return err
		}

		var resp embeddingResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return providers.NewProviderError(providerName, providers.CodeBadResponse,
				"failed to unmarshal embedding response", 0, false, err)
		}
		if len(resp.Data) != len(texts) {
			return providers.NewProviderError(providerName, providers.CodeBadResponse,
				fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)), 0, false, nil)
		}

		vectors = make([][]float32, len(texts))
		for _, item := range resp.Data {
			if item.Index < 0 || item.Index >= len(texts) {
				return providers.NewProviderError(providerName, providers.CodeBadResponse,
					fmt.Sprintf("embedding index %d out of range", item.Index), 0, false, nil)
			}
			if len(item.Embedding) != a.config.Dimension {
				return providers.NewProviderError(providerName, providers.CodeBadResponse,
					fmt.Sprintf("expected dimension %d, got %d", a.config.Dimension, len(item.Embedding)), 0, false, nil)
			}
			vectors[item.Index] = item.Embedding
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return vectors, nil
}

// GenerationAdapter implements providers.GenerationProvider
type GenerationAdapter struct {
	config     Config
	httpClient *http.Client
}

// NewGenerationAdapter creates a new generation adapter
func NewGenerationAdapter(config Config) *GenerationAdapter {
	config.applyDefaults()
	return &GenerationAdapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the provider name
func (a *GenerationAdapter) Name() string {
	return providerName
}

// Model returns the configured model identifier
func (a *GenerationAdapter) Model() string {
	return a.config.Model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate returns the answer text for the grounded prompt
func (a *GenerationAdapter) Generate(ctx context.Context, instructions, contextBlock, query string) (string, error) {
	system := instructions
	if contextBlock != "" {
		system = instructions + "\n\nContext:\n" + contextBlock
	} else {
		system = instructions + "\n\nContext:\n(no relevant context found)"
	}

	var answer string
	retryCfg := providers.RetryConfig{MaxRetries: a.config.MaxRetries, Delay: a.config.RetryDelay}

	err := providers.Do(ctx, retryCfg, func(ctx context.Context) error {
		body, err := postJSON(ctx, a.httpClient, a.config, "/chat/completions", chatRequest{
			Model: a.config.Model,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: query},
			},
			Temperature: 0.7,
			MaxTokens:   1000,
		})
		if err != nil {
			return err
		}

		var resp chatResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return providers.NewProviderError(providerName, providers.CodeBadResponse,
				"failed to unmarshal chat response", 0, false, err)
		}
		if len(resp.Choices) == 0 {
			return providers.NewProviderError(providerName, providers.CodeBadResponse,
				"chat response contains no choices", 0, false, nil)
		}

		answer = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}

	return answer, nil
}

// postJSON executes one POST attempt and returns the response body on 200
func postJSON(ctx context.Context, client *http.Client, cfg Config, path string, payload interface{}) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, providers.NewProviderError(providerName, providers.CodeBadRequest,
			"failed to marshal request", 0, false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, providers.NewProviderError(providerName, providers.CodeBadRequest,
			"failed to create request", 0, false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, providers.FromRequestError(providerName, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewProviderError(providerName, providers.CodeBadResponse,
			"failed to read response", httpResp.StatusCode, false, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, providers.FromHTTPStatus(providerName, httpResp.StatusCode, string(respBody))
	}

	return respBody, nil
}
