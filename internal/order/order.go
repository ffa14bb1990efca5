// Package order
package order

import (
	"time"

	"github.com/amirphl/xau-signals/internal/candle"
	"github.com/amirphl/xau-signals/internal/pattern"
)

// HitType says how a simulated order was resolved.
type HitType string

const (
	HitTP      HitType = "TP"
	HitSL      HitType = "SL"
	HitTimeout HitType = "TIMEOUT"
)

// Result is the trade outcome.
type Result string

const (
	ResultWin  Result = "WIN"
	ResultLoss Result = "LOSS"
)

// Order is an active simulated trade. The backtest engine owns orders
// exclusively; an order resolves exactly once and then only exists as
// a CompletedTrade.
type Order struct {
	EntryTime  time.Time
	EntryPrice float64
	Side       pattern.Side
	Pattern    pattern.Pattern
	TPPrice    float64
	SLPrice    float64
	Confidence float64
}

// CompletedTrade is the terminal record of an order.
type CompletedTrade struct {
	EntryTime     time.Time       `json:"entry_time"`
	ExitTime      time.Time       `json:"exit_time"`
	Side          pattern.Side    `json:"signal_type"`
	Pattern       pattern.Pattern `json:"pattern"`
	EntryPrice    float64         `json:"entry_price"`
	ExitPrice     float64         `json:"exit_price"`
	TPPrice       float64         `json:"tp_price"`
	SLPrice       float64         `json:"sl_price"`
	HitType       HitType         `json:"hit_type"`
	PnL           float64         `json:"pnl"`
	PnLPercentage float64         `json:"pnl_percentage"`
	Result        Result          `json:"result"`
	Duration      time.Duration   `json:"-"`
	Confidence    float64         `json:"confidence"`
}

// DurationMinutes returns the whole minutes the trade was open.
func (t *CompletedTrade) DurationMinutes() int {
	return int(t.Duration.Minutes())
}

// New builds an active order from a signal, deriving TP and SL from the
// fixed USD offsets.
func New(sig pattern.Signal, entryTime time.Time, tpAmount, slAmount float64) Order {
	tp, sl := TPSLPrices(sig.EntryPrice, sig.Side, tpAmount, slAmount)
	return Order{
		EntryTime:  entryTime,
		EntryPrice: sig.EntryPrice,
		Side:       sig.Side,
		Pattern:    sig.Pattern,
		TPPrice:    tp,
		SLPrice:    sl,
		Confidence: sig.Confidence,
	}
}

// TPSLPrices derives take-profit and stop-loss prices from fixed USD
// offsets. LONG adds the TP offset and subtracts the SL offset; SHORT
// is mirrored.
func TPSLPrices(entryPrice float64, side pattern.Side, tpAmount, slAmount float64) (tpPrice, slPrice float64) {
	if side == pattern.SideLong {
		return entryPrice + tpAmount, entryPrice - slAmount
	}
	return entryPrice - tpAmount, entryPrice + slAmount
}

// CheckTPSL tests one candle against the order's TP and SL levels. TP
// is checked first, which doubles as the tie-break when a single candle
// spans both levels. The exit price is the level itself, not the
// candle's extreme.
func (o *Order) CheckTPSL(c candle.Candle) (HitType, float64, bool) {
	if o.Side == pattern.SideLong {
		if c.High >= o.TPPrice {
			return HitTP, o.TPPrice, true
		}
		if c.Low <= o.SLPrice {
			return HitSL, o.SLPrice, true
		}
	} else {
		if c.Low <= o.TPPrice {
			return HitTP, o.TPPrice, true
		}
		if c.High >= o.SLPrice {
			return HitSL, o.SLPrice, true
		}
	}
	return "", 0, false
}

// Close resolves the order into a completed trade.
func (o *Order) Close(exitTime time.Time, exitPrice float64, hit HitType) CompletedTrade {
	result := ResultLoss
	switch hit {
	case HitTP:
		result = ResultWin
	case HitTimeout:
		if o.timeoutFavorsTP(exitPrice) {
			result = ResultWin
		}
	}

	return CompletedTrade{
		EntryTime:     o.EntryTime,
		ExitTime:      exitTime,
		Side:          o.Side,
		Pattern:       o.Pattern,
		EntryPrice:    o.EntryPrice,
		ExitPrice:     exitPrice,
		TPPrice:       o.TPPrice,
		SLPrice:       o.SLPrice,
		HitType:       hit,
		PnL:           PnL(o.EntryPrice, exitPrice, o.Side),
		PnLPercentage: PnLPercent(o.EntryPrice, exitPrice, o.Side),
		Result:        result,
		Duration:      exitTime.Sub(o.EntryTime),
		Confidence:    o.Confidence,
	}
}

// timeoutFavorsTP reports whether a timeout exit landed on the TP side
// of the entry.
func (o *Order) timeoutFavorsTP(exitPrice float64) bool {
	if o.Side == pattern.SideLong {
		return exitPrice >= o.TPPrice
	}
	return exitPrice <= o.TPPrice
}

// PnL returns the trade profit in USD: exit-entry for LONG, entry-exit
// for SHORT.
func PnL(entryPrice, exitPrice float64, side pattern.Side) float64 {
	if side == pattern.SideLong {
		return exitPrice - entryPrice
	}
	return entryPrice - exitPrice
}

// PnLPercent returns the trade profit as a percentage of the entry.
func PnLPercent(entryPrice, exitPrice float64, side pattern.Side) float64 {
	if entryPrice == 0 {
		return 0
	}
	return PnL(entryPrice, exitPrice, side) / entryPrice * 100
}
