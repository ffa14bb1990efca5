// Package db
package db

import (
	"context"
	"errors"
	"time"

	"github.com/amirphl/xau-signals/internal/candle"
	"github.com/amirphl/xau-signals/internal/pattern"
)

// ErrNoData marks operations that found an empty series. Callers treat
// it as "nothing to work on", not as a storage failure.
var ErrNoData = errors.New("no candle data available")

// Storage is the persistence interface for candles and detected
// signals. Candle uniqueness key is (timestamp, timeframe).
type Storage interface {
	SaveCandles(ctx context.Context, candles []candle.Candle) error
	GetCandles(ctx context.Context, timeframe string, start, end time.Time) ([]candle.Candle, error)
	GetLatestTimestamp(ctx context.Context, timeframe string) (*time.Time, error)
	GetCandleCount(ctx context.Context, timeframe string, start, end time.Time) (int, error)

	SaveSignals(ctx context.Context, signals []pattern.Signal) error
	GetSignals(ctx context.Context, start, end time.Time) ([]pattern.Signal, error)

	Close() error
}
