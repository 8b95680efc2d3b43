// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

// Package source is the client for the rate-limited external content search
// API. The API is a black box returning items and quota counters; this
// package wraps it with bearer auth, client-side pacing, and a circuit
// breaker, and reports quota headers back to the tracker after every call.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/jonasqin/automedia/internal/config"
	"github.com/jonasqin/automedia/internal/metrics"
	"github.com/jonasqin/automedia/internal/models"
)

// Endpoint names used for quota tracking.
const (
	EndpointSearch   = "search"
	EndpointTrending = "trending"

	// endpointQuotaStatus labels the quota-status call in request metrics.
	// It is never a tracked endpoint itself.
	endpointQuotaStatus = "quota"
)

// ErrSource marks transient external-source failures. Callers treat these as
// recoverable per-tick failures, never as reasons to abort a batch.
var ErrSource = errors.New("content source error")

// SearchOptions bounds one search call.
type SearchOptions struct {
	MaxResults int
	SinceID    string
}

// ContentSource is the external search API consumed by the collector.
type ContentSource interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]models.ContentItem, error)
	Trending(ctx context.Context, location string) ([]models.Trend, error)
	Quota(ctx context.Context, endpoint string) (models.QuotaSnapshot, error)
}

// QuotaObserver receives opportunistic quota updates parsed from response
// headers after each call. The rate limit tracker implements this.
type QuotaObserver interface {
	Observe(snapshot models.QuotaSnapshot)
}

// HTTPClient is the concrete ContentSource over HTTP. Outbound calls are
// paced with a token-bucket limiter in addition to the provider quota; the
// provider remains the authority on exhaustion.
type HTTPClient struct {
	baseURL  string
	token    string
	http     *http.Client
	limiter  *rate.Limiter
	observer QuotaObserver
}

// NewHTTPClient creates a content source client from configuration.
func NewHTTPClient(cfg *config.SourceConfig) *HTTPClient {
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		token:   cfg.BearerToken,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// SetQuotaObserver wires the tracker that receives per-call quota headers.
func (c *HTTPClient) SetQuotaObserver(o QuotaObserver) {
	c.observer = o
}

// searchResponse is the wire shape of a search call.
type searchResponse struct {
	Items []struct {
		ID         string    `json:"id"`
		Text       string    `json:"text"`
		AuthorID   string    `json:"author_id"`
		AuthorName string    `json:"author_name"`
		CreatedAt  time.Time `json:"created_at"`
	} `json:"items"`
}

// Search fetches recent items matching the query.
func (c *HTTPClient) Search(ctx context.Context, query string, opts SearchOptions) ([]models.ContentItem, error) {
	params := url.Values{"query": {query}}
	if opts.MaxResults > 0 {
		params.Set("max_results", strconv.Itoa(opts.MaxResults))
	}
	if opts.SinceID != "" {
		params.Set("since_id", opts.SinceID)
	}

	var resp searchResponse
	if err := c.get(ctx, EndpointSearch, "/tweets/search/recent", params, &resp); err != nil {
		return nil, err
	}

	items := make([]models.ContentItem, 0, len(resp.Items))
	now := time.Now().UTC()
	for _, it := range resp.Items {
		items = append(items, models.ContentItem{
			ExternalID:  it.ID,
			Text:        it.Text,
			AuthorID:    it.AuthorID,
			AuthorName:  it.AuthorName,
			Source:      "twitter",
			PostedAt:    it.CreatedAt,
			CollectedAt: now,
		})
	}
	return items, nil
}

// trendingResponse is the wire shape of a trending call.
type trendingResponse struct {
	Trends []struct {
		Name   string `json:"name"`
		Query  string `json:"query"`
		Volume int64  `json:"tweet_volume"`
	} `json:"trends"`
}

// Trending fetches the trending topics for a location.
func (c *HTTPClient) Trending(ctx context.Context, location string) ([]models.Trend, error) {
	params := url.Values{"location": {location}}

	var resp trendingResponse
	if err := c.get(ctx, EndpointTrending, "/trends", params, &resp); err != nil {
		return nil, err
	}

	trends := make([]models.Trend, 0, len(resp.Trends))
	for _, t := range resp.Trends {
		trends = append(trends, models.Trend{Name: t.Name, Query: t.Query, Volume: t.Volume})
	}
	return trends, nil
}

// quotaResponse is the wire shape of the quota-status operation.
type quotaResponse struct {
	Remaining int   `json:"remaining"`
	Limit     int   `json:"limit"`
	ResetAt   int64 `json:"reset_at"`
}

// Quota fetches the current call budget for an endpoint.
func (c *HTTPClient) Quota(ctx context.Context, endpoint string) (models.QuotaSnapshot, error) {
	params := url.Values{"endpoint": {endpoint}}

	var resp quotaResponse
	if err := c.get(ctx, endpointQuotaStatus, "/rate_limit_status", params, &resp); err != nil {
		return models.QuotaSnapshot{}, err
	}
	return models.QuotaSnapshot{
		Endpoint:  endpoint,
		Remaining: resp.Remaining,
		Limit:     resp.Limit,
		ResetAt:   time.Unix(resp.ResetAt, 0),
	}, nil
}

// get performs one paced, authenticated GET and decodes the JSON body.
func (c *HTTPClient) get(ctx context.Context, endpoint, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: limiter: %w", ErrSource, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrSource, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.SourceRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("%w: %s: %w", ErrSource, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.observeQuota(endpoint, resp)

	if resp.StatusCode != http.StatusOK {
		metrics.SourceRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		return fmt.Errorf("%w: %s returned status %d", ErrSource, endpoint, resp.StatusCode)
	}
	metrics.SourceRequests.WithLabelValues(endpoint, "ok").Inc()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", ErrSource, endpoint, err)
	}
	return nil
}

// observeQuota forwards x-rate-limit-* response headers to the tracker.
// Absent or malformed headers are ignored; the scheduled quota refresh
// remains the fallback. The quota-status call is skipped: its body is the
// authoritative snapshot for the queried endpoint, and its own headers
// describe the status endpoint rather than the one asked about.
func (c *HTTPClient) observeQuota(endpoint string, resp *http.Response) {
	if c.observer == nil || endpoint == endpointQuotaStatus {
		return
	}
	remaining, err := strconv.Atoi(resp.Header.Get("x-rate-limit-remaining"))
	if err != nil {
		return
	}
	limit, err := strconv.Atoi(resp.Header.Get("x-rate-limit-limit"))
	if err != nil {
		return
	}
	snapshot := models.QuotaSnapshot{Endpoint: endpoint, Remaining: remaining, Limit: limit}
	if reset, err := strconv.ParseInt(resp.Header.Get("x-rate-limit-reset"), 10, 64); err == nil {
		snapshot.ResetAt = time.Unix(reset, 0)
	}
	c.observer.Observe(snapshot)
}
