// Package candle
package candle

import (
	"errors"
	"math"
	"time"
)

// Candle is one OHLCV bar of XAU/USD for a fixed time bucket.
// Candles are value types; once constructed they are never mutated.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	Timeframe string    `json:"timeframe"`
}

// New builds a candle and rejects rows that violate the OHLC ordering
// invariant: low <= min(open,close) <= max(open,close) <= high.
func New(ts time.Time, open, high, low, close float64, volume int64, timeframe string) (Candle, error) {
	c := Candle{
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
		Timeframe: timeframe,
	}
	if err := c.Validate(); err != nil {
		return Candle{}, err
	}
	return c, nil
}

// Validate checks if a candle has valid data
func (c *Candle) Validate() error {
	if c.Timestamp.IsZero() {
		return errors.New("candle timestamp is zero")
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return errors.New("candle prices must be positive")
	}
	if c.High < c.Low {
		return errors.New("candle high cannot be less than low")
	}
	if c.Open < c.Low || c.Open > c.High {
		return errors.New("candle open price must be between high and low")
	}
	if c.Close < c.Low || c.Close > c.High {
		return errors.New("candle close price must be between high and low")
	}
	if c.Volume < 0 {
		return errors.New("candle volume cannot be negative")
	}
	if c.Timeframe == "" {
		return errors.New("candle timeframe cannot be empty")
	}
	return nil
}

// IsUp returns true if the candle closed above its open.
func (c *Candle) IsUp() bool {
	return c.Close > c.Open
}

// IsDown returns true if the candle closed below its open.
// A candle with close == open is neither up nor down.
func (c *Candle) IsDown() bool {
	return c.Close < c.Open
}

// BodyRange returns the absolute size of the candle body.
func (c *Candle) BodyRange() float64 {
	return math.Abs(c.Close - c.Open)
}

// BodyTop returns the upper edge of the candle body (wick excluded).
func (c *Candle) BodyTop() float64 {
	return math.Max(c.Open, c.Close)
}

// BodyBottom returns the lower edge of the candle body (wick excluded).
func (c *Candle) BodyBottom() float64 {
	return math.Min(c.Open, c.Close)
}

// AmplitudePct returns the candle body amplitude as a percentage of the
// open price. Used as an optional volatility floor for pattern
// detection.
func (c *Candle) AmplitudePct() float64 {
	if c.Open == 0 {
		return 0
	}
	return math.Abs(c.Close-c.Open) / c.Open * 100
}
