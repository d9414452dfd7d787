// Package serper implements the web search provider against the serper.dev
// Google Search API.
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/upb/knowledge-engine/services/providers"
)

const (
	providerName = "serper"
	endpoint     = "https://google.serper.dev/search"
)

// Config holds the serper adapter configuration
type Config struct {
	APIKey      string
	BaseURL     string // overridable for tests
	ResultCount int
	Timeout     time.Duration
}

// Adapter implements providers.SearchProvider
type Adapter struct {
	config     Config
	httpClient *http.Client
}

// NewAdapter creates a new serper search adapter
func NewAdapter(config Config) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = endpoint
	}
	if config.ResultCount <= 0 {
		config.ResultCount = 5
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	return &Adapter{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return providerName
}

type searchRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num"`
}

type searchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search returns ranked web hits for a query
func (a *Adapter) Search(ctx context.Context, query string) ([]providers.WebResult, error) {
	reqBody, err := json.Marshal(searchRequest{Query: query, Num: a.config.ResultCount})
	if err != nil {
		return nil, providers.NewProviderError(providerName, providers.CodeBadRequest,
			"failed to marshal request", 0, false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, providers.NewProviderError(providerName, providers.CodeBadRequest,
			"failed to create request", 0, false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-KEY", a.config.APIKey)

	httpResp, err := a.httpClient.Do(httpReq)
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

	var resp searchResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, providers.NewProviderError(providerName, providers.CodeBadResponse,
			"failed to unmarshal search response", httpResp.StatusCode, false, err)
	}

	results := make([]providers.WebResult, 0, len(resp.Organic))
	for _, item := range resp.Organic {
		if len(results) >= a.config.ResultCount {
			break
		}
		results = append(results, providers.WebResult{
			Title:    item.Title,
			URL:      item.Link,
			Snippet:  item.Snippet,
			Provider: providerName,
		})
	}
	return results, nil
}
