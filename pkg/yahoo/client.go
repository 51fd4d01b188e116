package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"stockwatch/internal/tracker/store"
)

// Client talks to the Yahoo Finance v8 chart API. It implements the
// scheduler's Fetcher contract: one quote or one history series per
// call, no shared state.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// FetchQuote returns the current price for symbol and its percentage
// change versus the prior close. The change is 0 when the prior close
// is not usable.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (store.Quote, error) {
	result, err := c.getChart(ctx, symbol, "1m", "1d")
	if err != nil {
		return store.Quote{}, err
	}

	price := result.Meta.RegularMarketPrice
	prevClose := result.Meta.ChartPreviousClose

	var change float64
	if prevClose != 0 {
		change = (price - prevClose) / prevClose * 100
	}

	return store.Quote{Price: price, ChangePercent: change}, nil
}

// FetchHistory returns the one-day look-back series for symbol at
// 5-minute resolution, oldest first. Samples with a null close are
// skipped.
func (c *Client) FetchHistory(ctx context.Context, symbol string) ([]store.PricePoint, error) {
	result, err := c.getChart(ctx, symbol, "5m", "1d")
	if err != nil {
		return nil, err
	}

	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart for %s has no quote indicators", symbol)
	}
	closes := result.Indicators.Quote[0].Close

	series := make([]store.PricePoint, 0, len(result.Timestamps))
	for i, ts := range result.Timestamps {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		series = append(series, store.PricePoint{
			Price:     *closes[i],
			Timestamp: time.Unix(ts, 0).UTC(),
		})
	}
	return series, nil
}

// getChart performs one chart request and unwraps the envelope down to
// the first result.
func (c *Client) getChart(ctx context.Context, symbol, interval, rng string) (*ChartResult, error) {
	endpoint := fmt.Sprintf(
		"%s/v8/finance/chart/%s?interval=%s&range=%s",
		c.baseURL,
		url.PathEscape(symbol),
		interval,
		rng,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	// The chart endpoint rejects requests without a browser-like agent.
	req.Header.Set("User-Agent", "Mozilla/5.0")
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chart api error for %s: status %d: %s", symbol, resp.StatusCode, body)
	}

	var rawResp ChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&rawResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if rawResp.Chart.Error != nil {
		return nil, fmt.Errorf("chart api error for %s: %s: %s",
			symbol, rawResp.Chart.Error.Code, rawResp.Chart.Error.Description)
	}
	if len(rawResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart for %s has no result", symbol)
	}

	return &rawResp.Chart.Result[0], nil
}
