// Package gamma discovers up/down markets through the Polymarket Gamma API.
package gamma

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rewired-gh/polyflip/internal/models"
)

// Client fetches market metadata from the Gamma API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Gamma API client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// gammaMarket is the subset of the Gamma market payload the bot consumes.
type gammaMarket struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	Question     string `json:"question"`
	Active       bool   `json:"active"`
	Closed       bool   `json:"closed"`
	ClobTokenIds string `json:"clobTokenIds"` // JSON string: "[\"up\", \"down\"]"
}

// FetchSession resolves a market slug into a tradable session. The first
// token in clobTokenIds is the Up outcome, the second the Down outcome, per
// Gamma's delivery order for up/down markets.
func (c *Client) FetchSession(ctx context.Context, slug string, start, end int64) (*models.Session, error) {
	u := c.baseURL + "/markets/slug/" + url.PathEscape(slug)

	resp, err := c.doRequest(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market %q: %w", slug, err)
	}
	defer resp.Body.Close()

	var market gammaMarket
	if err := json.NewDecoder(resp.Body).Decode(&market); err != nil {
		return nil, fmt.Errorf("failed to decode market: %w", err)
	}

	var tokenIDs []string
	if err := json.Unmarshal([]byte(market.ClobTokenIds), &tokenIDs); err != nil {
		return nil, fmt.Errorf("failed to parse clobTokenIds: %w", err)
	}
	if len(tokenIDs) < 2 {
		return nil, fmt.Errorf("market %q has %d outcome tokens, want 2", slug, len(tokenIDs))
	}

	session := &models.Session{
		Slug:        slug,
		UpTokenID:   tokenIDs[0],
		DownTokenID: tokenIDs[1],
		Start:       start,
		End:         end,
	}
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session from market %q: %w", slug, err)
	}
	return session, nil
}

// doRequest performs a GET with bounded linear-backoff retry on transport and
// server errors.
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	const maxRetries = 3
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
