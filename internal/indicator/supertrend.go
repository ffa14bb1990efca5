// Package indicator
package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/amirphl/xau-signals/internal/candle"
)

// Trend is the active SuperTrend direction.
type Trend int

const (
	TrendDown Trend = -1
	TrendUp   Trend = 1
)

func (t Trend) String() string {
	if t == TrendUp {
		return "UP"
	}
	return "DOWN"
}

// ATRMethod selects the smoothing applied to the true range.
type ATRMethod string

const (
	ATRSMA    ATRMethod = "sma"
	ATREMA    ATRMethod = "ema"
	ATRWilder ATRMethod = "wilder"
)

// SuperTrendConfig holds the indicator parameters.
type SuperTrendConfig struct {
	Lookback   int
	Multiplier float64
	Method     ATRMethod
}

// DefaultSuperTrendConfig returns the production parameters.
func DefaultSuperTrendConfig() SuperTrendConfig {
	return SuperTrendConfig{Lookback: 10, Multiplier: 3.2, Method: ATRSMA}
}

// TrendState is the per-bar SuperTrend output. Up is the support band
// (hl2 - k*ATR, active during an uptrend), Dn the resistance band
// (hl2 + k*ATR, active during a downtrend). Line is whichever band the
// current trend rides on.
type TrendState struct {
	Timestamp time.Time
	Trend     Trend
	Line      float64
	Up        float64
	Dn        float64
}

// CalculateSuperTrend computes SuperTrend over an ascending series as a
// running-state fold: each step consumes the previous finalized bands
// and trend and emits a new immutable TrendState.
//
// Final bands carry the tighter of the previous final band and the
// current basic band while the prior close has not crossed through.
// Trend flips on the candle body, never the wick: DOWN->UP when the
// body top exceeds the prior final Dn band, UP->DOWN when the body
// bottom falls below the prior final Up band.
func CalculateSuperTrend(candles []candle.Candle, cfg SuperTrendConfig) ([]TrendState, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("supertrend: empty series")
	}
	if cfg.Lookback <= 0 {
		return nil, fmt.Errorf("supertrend: lookback must be positive, got %d", cfg.Lookback)
	}
	if cfg.Multiplier <= 0 {
		return nil, fmt.Errorf("supertrend: multiplier must be positive, got %f", cfg.Multiplier)
	}

	tr := trueRange(candles)
	atr, err := smoothATR(tr, cfg.Lookback, cfg.Method)
	if err != nil {
		return nil, err
	}

	states := make([]TrendState, len(candles))

	for i, c := range candles {
		hl2 := (c.High + c.Low) / 2
		basicUp := hl2 - cfg.Multiplier*atr[i]
		basicDn := hl2 + cfg.Multiplier*atr[i]

		if i == 0 {
			// Start in a downtrend riding the resistance band.
			states[0] = TrendState{
				Timestamp: c.Timestamp,
				Trend:     TrendDown,
				Line:      basicDn,
				Up:        basicUp,
				Dn:        basicDn,
			}
			continue
		}

		prev := states[i-1]
		prevClose := candles[i-1].Close

		finalUp := basicUp
		if prevClose > prev.Up {
			finalUp = math.Max(basicUp, prev.Up)
		}

		finalDn := basicDn
		if prevClose < prev.Dn {
			finalDn = math.Min(basicDn, prev.Dn)
		}

		trend := prev.Trend
		if prev.Trend == TrendDown && c.BodyTop() > prev.Dn {
			trend = TrendUp
		} else if prev.Trend == TrendUp && c.BodyBottom() < prev.Up {
			trend = TrendDown
		}

		line := finalDn
		if trend == TrendUp {
			line = finalUp
		}

		states[i] = TrendState{
			Timestamp: c.Timestamp,
			Trend:     trend,
			Line:      line,
			Up:        finalUp,
			Dn:        finalDn,
		}
	}

	return states, nil
}

// trueRange computes TR per bar; the first bar falls back to high-low.
func trueRange(candles []candle.Candle) []float64 {
	tr := make([]float64, len(candles))
	for i, c := range candles {
		if i == 0 {
			tr[0] = c.High - c.Low
			continue
		}
		prevClose := candles[i-1].Close
		tr[i] = math.Max(c.High-c.Low,
			math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
	}
	return tr
}

// smoothATR averages the true range with the selected method. Bars
// before the SMA window fills fall back to the raw true range.
func smoothATR(tr []float64, lookback int, method ATRMethod) ([]float64, error) {
	atr := make([]float64, len(tr))

	switch method {
	case ATRSMA:
		var sum float64
		for i, v := range tr {
			sum += v
			if i >= lookback {
				sum -= tr[i-lookback]
			}
			if i >= lookback-1 {
				atr[i] = sum / float64(lookback)
			} else {
				atr[i] = v
			}
		}
	case ATREMA:
		alpha := 2.0 / (float64(lookback) + 1.0)
		var num, den float64
		for i, v := range tr {
			num = v + (1-alpha)*num
			den = 1 + (1-alpha)*den
			atr[i] = num / den
		}
	case ATRWilder:
		alpha := 1.0 / float64(lookback)
		for i, v := range tr {
			if i == 0 {
				atr[0] = v
				continue
			}
			atr[i] = (1-alpha)*atr[i-1] + alpha*v
		}
	default:
		return nil, fmt.Errorf("supertrend: unknown ATR method %q", method)
	}

	return atr, nil
}

// TrendAt returns the state matching a timestamp, or nil when the
// indicator has no value for it.
func TrendAt(states []TrendState, ts time.Time) *TrendState {
	for i := range states {
		if states[i].Timestamp.Equal(ts) {
			return &states[i]
		}
	}
	return nil
}
