package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amirphl/xau-signals/internal/candle"
	"github.com/amirphl/xau-signals/internal/pattern"
)

// MemoryStorage keeps candles and signals in process memory. It backs
// tests and DB-less runs.
type MemoryStorage struct {
	mu sync.RWMutex

	// Candles keyed by timeframe|timestamp
	candles map[string]candle.Candle
	signals []pattern.Signal
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		candles: make(map[string]candle.Candle),
	}
}

func candleKey(timeframe string, ts time.Time) string {
	return timeframe + "|" + ts.UTC().Format(time.RFC3339Nano)
}

func (m *MemoryStorage) SaveCandles(ctx context.Context, candles []candle.Candle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range candles {
		if err := candles[i].Validate(); err != nil {
			return err
		}
		c := candles[i]
		c.Timestamp = c.Timestamp.UTC()
		m.candles[candleKey(c.Timeframe, c.Timestamp)] = c
	}
	return nil
}

func (m *MemoryStorage) GetCandles(ctx context.Context, timeframe string, start, end time.Time) ([]candle.Candle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start = start.UTC()
	end = end.UTC()

	var out []candle.Candle
	for _, c := range m.candles {
		if c.Timeframe != timeframe {
			continue
		}
		if c.Timestamp.Before(start) || c.Timestamp.After(end) {
			continue
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *MemoryStorage) GetLatestTimestamp(ctx context.Context, timeframe string) (*time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *time.Time
	for _, c := range m.candles {
		if c.Timeframe != timeframe {
			continue
		}
		if latest == nil || c.Timestamp.After(*latest) {
			ts := c.Timestamp
			latest = &ts
		}
	}
	return latest, nil
}

func (m *MemoryStorage) GetCandleCount(ctx context.Context, timeframe string, start, end time.Time) (int, error) {
	candles, err := m.GetCandles(ctx, timeframe, start, end)
	if err != nil {
		return 0, err
	}
	return len(candles), nil
}

func (m *MemoryStorage) SaveSignals(ctx context.Context, signals []pattern.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, signals...)
	return nil
}

func (m *MemoryStorage) GetSignals(ctx context.Context, start, end time.Time) ([]pattern.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []pattern.Signal
	for _, s := range m.signals {
		if s.Timestamp.Before(start) || s.Timestamp.After(end) {
			continue
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *MemoryStorage) Close() error { return nil }
