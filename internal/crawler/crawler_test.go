package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/xau-signals/internal/candle"
	"github.com/amirphl/xau-signals/internal/db"
)

var base = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

type fakeFeed struct {
	candles []candle.Candle
	err     error

	lastStart time.Time
	lastEnd   time.Time
}

func (f *fakeFeed) Fetch(ctx context.Context, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	f.lastStart, f.lastEnd = start, end
	return f.candles, f.err
}

func mk(minOffset int) candle.Candle {
	return candle.Candle{
		Timestamp: base.Add(time.Duration(minOffset) * time.Minute),
		Open:      2000, High: 2010, Low: 1990, Close: 2005,
		Timeframe: "15m",
	}
}

func TestCrawlRange(t *testing.T) {
	feed := &fakeFeed{candles: []candle.Candle{mk(15), mk(0), mk(15)}}
	storage := db.NewMemory()

	n, err := New(feed, storage).CrawlRange(context.Background(), "15m", base, base.Add(time.Hour))
	require.NoError(t, err)
	// Duplicate bucket eliminated by normalization.
	assert.Equal(t, 2, n)

	stored, err := storage.GetCandles(context.Background(), "15m", base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestCrawlRangeInvalidRange(t *testing.T) {
	c := New(&fakeFeed{}, db.NewMemory())
	_, err := c.CrawlRange(context.Background(), "15m", base, base)
	assert.Error(t, err)
}

func TestCrawlRangeEmptyFeed(t *testing.T) {
	c := New(&fakeFeed{}, db.NewMemory())
	n, err := c.CrawlRange(context.Background(), "15m", base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCrawlRangeFeedError(t *testing.T) {
	feedErr := errors.New("boom")
	c := New(&fakeFeed{err: feedErr}, db.NewMemory())
	_, err := c.CrawlRange(context.Background(), "15m", base, base.Add(time.Hour))
	assert.True(t, errors.Is(err, feedErr))
}

func TestCrawlIncrementalResumesFromLatest(t *testing.T) {
	storage := db.NewMemory()
	require.NoError(t, storage.SaveCandles(context.Background(), []candle.Candle{mk(0), mk(15)}))

	feed := &fakeFeed{candles: []candle.Candle{mk(30)}}
	n, err := New(feed, storage).CrawlIncremental(context.Background(), "15m", base.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Fetch resumes one period after the latest stored candle.
	assert.Equal(t, base.Add(30*time.Minute), feed.lastStart)
}

func TestCrawlIncrementalEmptyStoreUsesFallback(t *testing.T) {
	fallback := base.AddDate(0, 0, -7)
	feed := &fakeFeed{candles: []candle.Candle{mk(0)}}

	_, err := New(feed, db.NewMemory()).CrawlIncremental(context.Background(), "15m", fallback)
	require.NoError(t, err)
	assert.Equal(t, fallback, feed.lastStart)
}

func TestCrawlIncrementalUnknownTimeframe(t *testing.T) {
	_, err := New(&fakeFeed{}, db.NewMemory()).CrawlIncremental(context.Background(), "7m", base)
	assert.Error(t, err)
}
