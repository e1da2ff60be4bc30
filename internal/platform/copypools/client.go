// Package copypools is the REST client for the copypools market backend,
// which aggregates Polymarket prediction markets and bookmaker odds behind
// one API.
package copypools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/TokenTimes/dropsd/internal/domain"
)

// Default listing limits per source, matching the backend's caps.
const (
	defaultPrimaryLimit   = 1000
	defaultSecondaryLimit = 500
)

// Client is the HTTP client for the copypools API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new client.
//
// baseURL is the API root, e.g. "https://copypools-production.up.railway.app".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchMarkets returns the market list for the given source tab. The primary
// tab queries /api/polymarket with an active filter; the secondary tab
// queries /api/bet365 with sport and regions parameters and head-to-head
// markets.
func (c *Client) FetchMarkets(ctx context.Context, tab domain.SourceTab, f domain.MarketFilters) ([]domain.Market, error) {
	var path string
	params := url.Values{}

	switch tab {
	case domain.SourcePolymarket:
		path = "/api/polymarket"
		params.Set("active", strconv.FormatBool(f.OnlyOpen))
		limit := f.Limit
		if limit <= 0 {
			limit = defaultPrimaryLimit
		}
		params.Set("limit", strconv.Itoa(limit))
	case domain.SourceBet365:
		path = "/api/bet365"
		params.Set("sport", f.Sport)
		params.Set("regions", f.Regions)
		params.Set("markets", "h2h")
		limit := f.Limit
		if limit <= 0 {
			limit = defaultSecondaryLimit
		}
		params.Set("limit", strconv.Itoa(limit))
	default:
		return nil, fmt.Errorf("copypools: %w: %q", domain.ErrUnknownTab, tab)
	}

	body, err := c.doGet(ctx, path+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("copypools: fetch %s markets: %w", tab, err)
	}

	var resp marketsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("copypools: decode %s markets: %w", tab, err)
	}

	markets := make([]domain.Market, 0, len(resp.Markets))
	for i := range resp.Markets {
		markets = append(markets, resp.Markets[i].toDomain())
	}
	return markets, nil
}

// doGet performs a GET request and returns the response body. Non-2xx
// responses are reported with the backend's error message when one is
// present.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr marketsResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, resp.Status)
	}

	return body, nil
}

// Compile-time interface check.
var _ domain.MarketFetcher = (*Client)(nil)
