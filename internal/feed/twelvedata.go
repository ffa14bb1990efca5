// Package feed fetches XAU/USD candles from the Twelve Data REST API.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/amirphl/xau-signals/internal/candle"
	"github.com/amirphl/xau-signals/internal/ratelimit"
	"github.com/amirphl/xau-signals/internal/tfutils"
	"github.com/amirphl/xau-signals/internal/utils"
)

const (
	defaultBaseURL = "https://api.twelvedata.com"
	defaultSymbol  = "XAU/USD"

	// Twelve Data caps a single time_series response at 5000 points.
	maxPointsPerRequest = 5000

	// Free tier allows 8 requests per minute.
	defaultMaxCalls = 8
	defaultPeriod   = time.Minute

	maxRetries     = 3
	initialBackoff = 2 * time.Second
)

// Client is a Twelve Data time_series client with built-in rate
// limiting and chunked range fetching.
type Client struct {
	apiKey  string
	symbol  string
	baseURL string
	client  *http.Client
	limiter *ratelimit.Limiter
}

// NewClient builds a client for the given API key trading the default
// XAU/USD symbol.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		symbol:  defaultSymbol,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: ratelimit.NewLimiter(defaultMaxCalls, defaultPeriod),
	}
}

// SetSymbol overrides the traded symbol.
func (c *Client) SetSymbol(symbol string) { c.symbol = symbol }

// SetBaseURL overrides the API endpoint, used by tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

type seriesResponse struct {
	Status  string        `json:"status"`
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Values  []seriesValue `json:"values"`
}

type seriesValue struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

// Fetch downloads all candles of the given timeframe in [start, end),
// splitting the range into chunks the API can serve in one response.
// An empty range is not an error; it returns no candles.
func (c *Client) Fetch(ctx context.Context, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	period, err := tfutils.ParseTimeframe(timeframe)
	if err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}

	var all []candle.Candle
	for chunkStart := start; chunkStart.Before(end); {
		chunkEnd := chunkStart.Add(time.Duration(maxPointsPerRequest) * period)
		if chunkEnd.After(end) {
			chunkEnd = end
		}

		batch, err := c.fetchChunk(ctx, timeframe, chunkStart, chunkEnd)
		if err != nil {
			return all, err
		}
		all = append(all, batch...)
		chunkStart = chunkEnd
	}

	candle.SortAsc(all)
	return all, nil
}

// fetchChunk downloads one API page with retries and backoff.
func (c *Client) fetchChunk(ctx context.Context, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxRetries; attempt++ {
		batch, retryable, err := c.doRequest(ctx, timeframe, start, end)
		if err == nil {
			return batch, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}

		utils.GetLogger().Printf("Feed | Attempt %d/%d failed: %v, retrying in %s", attempt, maxRetries, err, backoff)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("feed: fetch failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) doRequest(ctx context.Context, timeframe string, start, end time.Time) ([]candle.Candle, bool, error) {
	c.limiter.Acquire()

	q := url.Values{}
	q.Set("symbol", c.symbol)
	q.Set("interval", apiInterval(timeframe))
	q.Set("start_date", start.UTC().Format("2006-01-02 15:04:05"))
	q.Set("end_date", end.UTC().Format("2006-01-02 15:04:05"))
	q.Set("outputsize", strconv.Itoa(maxPointsPerRequest))
	q.Set("order", "ASC")
	q.Set("timezone", "UTC")
	q.Set("apikey", c.apiKey)

	reqURL := c.baseURL + "/time_series?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("feed: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("feed: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("feed: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("feed: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var sr seriesResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, false, fmt.Errorf("feed: decode response: %w", err)
	}
	if sr.Status == "error" {
		// 429 means the remote counter disagrees with ours; back off.
		return nil, sr.Code == 429, fmt.Errorf("feed: api error %d: %s", sr.Code, sr.Message)
	}

	candles := make([]candle.Candle, 0, len(sr.Values))
	for _, v := range sr.Values {
		cd, err := parseValue(v, timeframe)
		if err != nil {
			utils.GetLogger().Printf("Feed | Skipping malformed value %q: %v", v.Datetime, err)
			continue
		}
		candles = append(candles, cd)
	}
	return candles, false, nil
}

func parseValue(v seriesValue, timeframe string) (candle.Candle, error) {
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", v.Datetime, time.UTC)
	if err != nil {
		return candle.Candle{}, fmt.Errorf("parse datetime: %w", err)
	}

	open, err := strconv.ParseFloat(v.Open, 64)
	if err != nil {
		return candle.Candle{}, fmt.Errorf("parse open: %w", err)
	}
	high, err := strconv.ParseFloat(v.High, 64)
	if err != nil {
		return candle.Candle{}, fmt.Errorf("parse high: %w", err)
	}
	low, err := strconv.ParseFloat(v.Low, 64)
	if err != nil {
		return candle.Candle{}, fmt.Errorf("parse low: %w", err)
	}
	closePrice, err := strconv.ParseFloat(v.Close, 64)
	if err != nil {
		return candle.Candle{}, fmt.Errorf("parse close: %w", err)
	}

	var volume int64
	if v.Volume != "" {
		volume, _ = strconv.ParseInt(v.Volume, 10, 64)
	}

	return candle.New(ts, open, high, low, closePrice, volume, timeframe)
}

// apiInterval maps internal timeframe names to Twelve Data interval
// strings.
func apiInterval(timeframe string) string {
	switch timeframe {
	case "1m":
		return "1min"
	case "5m":
		return "5min"
	case "15m":
		return "15min"
	case "30m":
		return "30min"
	case "1h":
		return "1h"
	case "4h":
		return "4h"
	case "1d":
		return "1day"
	default:
		return timeframe
	}
}
