// Package pattern
package pattern

import (
	"time"
)

// Side is the trade direction of a signal.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Pattern tags the candle rule that produced a signal.
type Pattern string

const (
	PatternEngulfing Pattern = "ENGULFING"
	PatternInsideBar Pattern = "INSIDE_BAR"
)

// Signal is the ephemeral output of the detector, consumed immediately
// by the backtest engine or the notifier. Timestamp is the bar the
// signal fires for: one signal-timeframe period after the newest candle
// of the detection window, modeling realistic execution lag.
type Signal struct {
	Timestamp  time.Time `json:"timestamp"`
	Side       Side      `json:"signal_type"`
	Pattern    Pattern   `json:"pattern"`
	EntryPrice float64   `json:"entry_price"`
	// Confidence is clamped to [10, 95] once scored. Zero means the
	// signal has not been scored against a trend state.
	Confidence float64   `json:"confidence,omitempty"`
	IsStrong   bool      `json:"is_strong,omitempty"`
}
