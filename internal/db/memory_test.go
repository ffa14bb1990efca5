package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/xau-signals/internal/candle"
	"github.com/amirphl/xau-signals/internal/pattern"
)

var base = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func mkCandle(minOffset int, timeframe string) candle.Candle {
	return candle.Candle{
		Timestamp: base.Add(time.Duration(minOffset) * time.Minute),
		Open:      2000, High: 2010, Low: 1990, Close: 2005,
		Timeframe: timeframe,
	}
}

func TestMemorySaveAndGetCandles(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.SaveCandles(ctx, []candle.Candle{
		mkCandle(30, "15m"), mkCandle(0, "15m"), mkCandle(15, "15m"), mkCandle(0, "1m"),
	}))

	out, err := s.GetCandles(ctx, "15m", base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, base, out[0].Timestamp)
	assert.Equal(t, base.Add(30*time.Minute), out[2].Timestamp)

	// Range bounds are inclusive.
	out, err = s.GetCandles(ctx, "15m", base.Add(15*time.Minute), base.Add(15*time.Minute))
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestMemorySaveCandlesUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	first := mkCandle(0, "15m")
	require.NoError(t, s.SaveCandles(ctx, []candle.Candle{first}))

	updated := first
	updated.Close = 2008
	require.NoError(t, s.SaveCandles(ctx, []candle.Candle{updated}))

	out, err := s.GetCandles(ctx, "15m", base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 2008.0, out[0].Close)
}

func TestMemorySaveCandlesRejectsInvalid(t *testing.T) {
	s := NewMemory()
	bad := mkCandle(0, "15m")
	bad.High = 1000
	assert.Error(t, s.SaveCandles(context.Background(), []candle.Candle{bad}))
}

func TestMemoryGetLatestTimestamp(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	latest, err := s.GetLatestTimestamp(ctx, "15m")
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, s.SaveCandles(ctx, []candle.Candle{mkCandle(0, "15m"), mkCandle(45, "15m")}))

	latest, err = s.GetLatestTimestamp(ctx, "15m")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, base.Add(45*time.Minute), *latest)
}

func TestMemoryGetCandleCount(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.SaveCandles(ctx, []candle.Candle{mkCandle(0, "15m"), mkCandle(15, "15m")}))

	n, err := s.GetCandleCount(ctx, "15m", base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.GetCandleCount(ctx, "1m", base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemorySignals(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	sigs := []pattern.Signal{
		{Timestamp: base.Add(30 * time.Minute), Side: pattern.SideShort, Pattern: pattern.PatternEngulfing, EntryPrice: 1999},
		{Timestamp: base, Side: pattern.SideLong, Pattern: pattern.PatternInsideBar, EntryPrice: 2005},
	}
	require.NoError(t, s.SaveSignals(ctx, sigs))

	out, err := s.GetSignals(ctx, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, pattern.SideLong, out[0].Side)
	assert.Equal(t, pattern.SideShort, out[1].Side)

	out, err = s.GetSignals(ctx, base.Add(time.Minute), base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, out, 1)
}
