// Package bing implements a keyless web search provider by scraping the Bing
// result page. It needs no API key, which makes it the fallback when no paid
// search provider is configured, at the cost of depending on Bing's markup.
package bing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/upb/knowledge-engine/services/providers"
)

const (
	providerName = "bing"
	endpoint     = "https://www.bing.com/search"

	// A desktop user agent; Bing serves a stripped-down page to unknown clients.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config holds the bing adapter configuration
type Config struct {
	BaseURL     string // overridable for tests
	ResultCount int
	Timeout     time.Duration
}

// Adapter implements providers.SearchProvider
type Adapter struct {
	config     Config
	httpClient *http.Client
}

// NewAdapter creates a new bing search adapter
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

// Search returns ranked web hits scraped from the Bing result page
func (a *Adapter) Search(ctx context.Context, query string) ([]providers.WebResult, error) {
	searchURL := fmt.Sprintf("%s?q=%s&count=%d", a.config.BaseURL, url.QueryEscape(query), a.config.ResultCount)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, providers.NewProviderError(providerName, providers.CodeBadRequest,
			"failed to create request", 0, false, err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, providers.FromRequestError(providerName, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, providers.FromHTTPStatus(providerName, httpResp.StatusCode, httpResp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(httpResp.Body)
	if err != nil {
		return nil, providers.NewProviderError(providerName, providers.CodeBadResponse,
			"failed to parse result page", httpResp.StatusCode, false, err)
	}

	results := make([]providers.WebResult, 0, a.config.ResultCount)
	doc.Find("li.b_algo").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("h2 a").First()
		href, ok := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		if !ok || href == "" || title == "" {
			return true
		}
		snippet := strings.TrimSpace(sel.Find(".b_caption p").First().Text())

		results = append(results, providers.WebResult{
			Title:    title,
			URL:      href,
			Snippet:  snippet,
			Provider: providerName,
		})
		return len(results) < a.config.ResultCount
	})

	return results, nil
}
