// Package crawler fills the candle store from the market data feed.
package crawler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/amirphl/xau-signals/internal/candle"
	"github.com/amirphl/xau-signals/internal/db"
	"github.com/amirphl/xau-signals/internal/tfutils"
	"github.com/amirphl/xau-signals/internal/utils"
)

// Fetcher is the slice of the feed client the crawler needs.
type Fetcher interface {
	Fetch(ctx context.Context, timeframe string, start, end time.Time) ([]candle.Candle, error)
}

// Crawler downloads candles and upserts them into storage.
type Crawler struct {
	feed    Fetcher
	storage db.Storage
}

func New(feed Fetcher, storage db.Storage) *Crawler {
	return &Crawler{feed: feed, storage: storage}
}

// CrawlRange downloads all candles of the given timeframe in
// [start, end) and stores them. Returns the number of candles fetched.
func (c *Crawler) CrawlRange(ctx context.Context, timeframe string, start, end time.Time) (int, error) {
	if !start.Before(end) {
		return 0, fmt.Errorf("crawler: start %s is not before end %s", start, end)
	}

	log.Printf("Crawling %s candles from %s to %s", timeframe, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))

	candles, err := c.feed.Fetch(ctx, timeframe, start, end)
	if err != nil {
		return 0, fmt.Errorf("crawler: fetch %s: %w", timeframe, err)
	}
	if len(candles) == 0 {
		utils.GetLogger().Printf("Crawler | No %s candles returned for %s..%s", timeframe, start, end)
		return 0, nil
	}

	candles = candle.Normalize(candles, timeframe)
	if err := c.storage.SaveCandles(ctx, candles); err != nil {
		return 0, fmt.Errorf("crawler: save %s candles: %w", timeframe, err)
	}

	log.Printf("Stored %d %s candles", len(candles), timeframe)
	return len(candles), nil
}

// CrawlIncremental resumes from the candle after the latest stored
// timestamp, or from fallbackStart when the store is empty, and crawls
// up to now.
func (c *Crawler) CrawlIncremental(ctx context.Context, timeframe string, fallbackStart time.Time) (int, error) {
	period, err := tfutils.ParseTimeframe(timeframe)
	if err != nil {
		return 0, fmt.Errorf("crawler: %w", err)
	}

	start := fallbackStart
	latest, err := c.storage.GetLatestTimestamp(ctx, timeframe)
	if err != nil {
		return 0, fmt.Errorf("crawler: latest timestamp: %w", err)
	}
	if latest != nil {
		start = latest.Add(period)
	}

	end := time.Now().UTC().Truncate(period)
	if !start.Before(end) {
		log.Printf("Store is up to date for %s, nothing to crawl", timeframe)
		return 0, nil
	}

	return c.CrawlRange(ctx, timeframe, start, end)
}

// CrawlAll runs an incremental crawl for every timeframe the engine
// consumes, signal series first.
func (c *Crawler) CrawlAll(ctx context.Context, timeframes []string, fallbackStart time.Time) error {
	for _, tf := range timeframes {
		if _, err := c.CrawlIncremental(ctx, tf, fallbackStart); err != nil {
			return err
		}
	}
	return nil
}
