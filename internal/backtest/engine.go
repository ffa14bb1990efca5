// Package backtest
package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/amirphl/xau-signals/internal/candle"
	"github.com/amirphl/xau-signals/internal/db"
	"github.com/amirphl/xau-signals/internal/indicator"
	"github.com/amirphl/xau-signals/internal/order"
	"github.com/amirphl/xau-signals/internal/pattern"
	"github.com/amirphl/xau-signals/internal/tfutils"
	"github.com/amirphl/xau-signals/internal/utils"
)

const (
	defaultTimeframe      = "15m"
	defaultTradeStartTime = "16:00"
	defaultTradeEndTime   = "23:00"
)

// Config holds the simulation parameters.
type Config struct {
	Timeframe string

	// Fixed USD exit offsets.
	TPAmount float64
	SLAmount float64

	// EnableTimeout force-closes orders still open at the end of the
	// run; TimeoutHours > 0 additionally ages out orders mid-run.
	EnableTimeout bool
	TimeoutHours  int

	// Admission policy.
	SingleOrderMode  bool
	EnableTimeWindow bool
	TradeStartTime   string // "HH:MM"
	TradeEndTime     string // "HH:MM"

	SuperTrend       indicator.SuperTrendConfig
	RequireAmplitude bool
}

// Result is the outcome of one backtest run. Partial marks a run that
// aborted early; Trades then holds whatever had completed, so callers
// can tell "zero trades because nothing matched" from "aborted with N
// trades".
type Result struct {
	Trades  []order.CompletedTrade
	Partial bool
	Err     error
}

// Engine replays detected signals against historical candles. It owns
// the active and completed order sets exclusively; runs are sequential
// and share no state.
type Engine struct {
	storage  db.Storage
	detector *pattern.Detector
	cfg      Config

	timeframe string
	period    time.Duration

	windowStart int // minutes of day
	windowEnd   int

	active    []order.Order
	completed []order.CompletedTrade
}

// NewEngine builds an engine. An invalid timeframe or time-window
// string falls back to the documented default with a warning.
func NewEngine(storage db.Storage, cfg Config) *Engine {
	timeframe := cfg.Timeframe
	period, err := tfutils.ParseTimeframe(timeframe)
	if err != nil {
		utils.GetLogger().Printf("Engine | Unknown timeframe %q, falling back to %s", timeframe, defaultTimeframe)
		timeframe = defaultTimeframe
		period = tfutils.GetTimeframeDuration(defaultTimeframe)
	}

	e := &Engine{
		storage:   storage,
		cfg:       cfg,
		timeframe: timeframe,
		period:    period,
		detector: pattern.NewDetector(pattern.Config{
			Timeframe:        timeframe,
			RequireAmplitude: cfg.RequireAmplitude,
		}),
	}

	e.windowStart = parseClock(cfg.TradeStartTime, defaultTradeStartTime)
	e.windowEnd = parseClock(cfg.TradeEndTime, defaultTradeEndTime)

	return e
}

// Run walks the signal series chronologically over [start, end],
// opening orders from detected signals and resolving them against the
// 1-minute precision series. Failures mid-run are soft: the result
// carries the trades completed so far with Partial set.
func (e *Engine) Run(ctx context.Context, start, end time.Time) Result {
	e.active = nil
	e.completed = nil

	signalSeries, precision, err := e.loadSeries(ctx, start, end)
	if err != nil {
		return Result{Trades: nil, Partial: true, Err: err}
	}

	// Trend states only feed confidence scoring; losing them is not
	// fatal.
	states, err := indicator.CalculateSuperTrend(signalSeries, e.cfg.SuperTrend)
	if err != nil {
		utils.GetLogger().Printf("Engine | SuperTrend unavailable, signals will carry no confidence: %v", err)
	} else {
		e.detector.SetTrendStates(states)
	}

	var runErr error
	for i := 3; i < len(signalSeries); i++ {
		if err := e.step(signalSeries, precision, i); err != nil {
			runErr = fmt.Errorf("step at %s: %w", signalSeries[i].Timestamp, err)
			utils.GetLogger().Printf("Engine | Aborting backtest: %v", runErr)
			break
		}
	}

	if runErr == nil && e.cfg.EnableTimeout {
		e.closeRemaining(signalSeries[len(signalSeries)-1])
	}

	utils.GetLogger().Printf("Engine | Backtest completed with %d trades (%d still active)", len(e.completed), len(e.active))

	return Result{
		Trades:  e.completed,
		Partial: runErr != nil,
		Err:     runErr,
	}
}

// loadSeries fetches both resolutions, rejects malformed rows and
// gap-checks the precision coverage.
func (e *Engine) loadSeries(ctx context.Context, start, end time.Time) (signal, precision []candle.Candle, err error) {
	signal, err = e.storage.GetCandles(ctx, e.timeframe, start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s candles: %w", e.timeframe, err)
	}
	signal = candle.FilterValid(signal)
	if len(signal) == 0 {
		return nil, nil, fmt.Errorf("%s series [%s, %s]: %w", e.timeframe, start, end, db.ErrNoData)
	}

	precision, err = e.storage.GetCandles(ctx, "1m", start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("loading 1m candles: %w", err)
	}
	precision = candle.FilterValid(precision)
	if len(precision) == 0 {
		return nil, nil, fmt.Errorf("1m series [%s, %s]: %w", start, end, db.ErrNoData)
	}

	if !candle.Covers(precision, signal) {
		utils.GetLogger().Printf("Engine | 1m series does not fully cover the %s span", e.timeframe)
	}
	if missing := candle.CheckGaps(precision, "1m"); missing > 0 {
		utils.GetLogger().Printf("Engine | 1m series has %d missing buckets (market closures or data gaps)", missing)
	}

	utils.GetLogger().Printf("Engine | Loaded %d %s candles and %d 1m candles", len(signal), e.timeframe, len(precision))
	return signal, precision, nil
}

// step processes one signal-series bar: detection first, then order
// resolution. A panic inside a step is recovered and surfaces as the
// step error.
func (e *Engine) step(signalSeries, precision []candle.Candle, i int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	current := signalSeries[i]

	// New signals are evaluated before any order resolution at this
	// timestamp.
	sig := e.detector.Detect(signalSeries[i-3], signalSeries[i-2], signalSeries[i-1])
	if sig != nil {
		e.admit(*sig, current.Timestamp)
	}

	e.resolveActive(current, precision)
	return nil
}

// admit applies the admission policy and opens an order when it passes.
func (e *Engine) admit(sig pattern.Signal, stepTime time.Time) {
	if e.cfg.SingleOrderMode && len(e.active) > 0 {
		utils.GetLogger().Printf("Engine | Signal ignored, single order mode with %d active order(s) at %s", len(e.active), stepTime.Format("2006-01-02 15:04"))
		return
	}

	if e.cfg.EnableTimeWindow && !withinTradingWindow(stepTime, e.windowStart, e.windowEnd) {
		utils.GetLogger().Printf("Engine | Signal ignored outside trading window at %s", stepTime.Format("15:04"))
		return
	}

	o := order.New(sig, stepTime, e.cfg.TPAmount, e.cfg.SLAmount)
	e.active = append(e.active, o)

	utils.GetLogger().Printf("Engine | Placed %s order at %s: Entry=$%.4f, TP=$%.4f, SL=$%.4f",
		sig.Side, stepTime.Format(time.RFC3339), o.EntryPrice, o.TPPrice, o.SLPrice)
}

// resolveActive checks every active order against this step: timeout by
// age first, then TP/SL on the 1-minute bars belonging to this step's
// bucket. Bars at or before an order's own entry are never consulted.
func (e *Engine) resolveActive(current candle.Candle, precision []candle.Candle) {
	if len(e.active) == 0 {
		return
	}

	stepTime := current.Timestamp
	window := precisionWindow(precision, stepTime.Add(-e.period), stepTime)

	var still []order.Order
	for _, o := range e.active {
		if e.cfg.TimeoutHours > 0 {
			age := stepTime.Sub(o.EntryTime)
			if age >= time.Duration(e.cfg.TimeoutHours)*time.Hour {
				trade := o.Close(stepTime, current.Close, order.HitTimeout)
				e.completed = append(e.completed, trade)
				utils.GetLogger().Printf("Engine | TIMEOUT trade: %s from %s closed after %.1fh, PnL: $%.4f",
					o.Side, o.EntryTime.Format(time.RFC3339), age.Hours(), trade.PnL)
				continue
			}
		}

		// Orders placed at this step resolve from the next step on.
		if !o.EntryTime.Before(stepTime) {
			still = append(still, o)
			continue
		}

		closed := false
		for _, bar := range window {
			if !bar.Timestamp.After(o.EntryTime) {
				continue
			}
			hit, exitPrice, ok := o.CheckTPSL(bar)
			if !ok {
				continue
			}
			trade := o.Close(bar.Timestamp, exitPrice, hit)
			e.completed = append(e.completed, trade)
			utils.GetLogger().Printf("Engine | %s trade: %s from %s hit %s at %s (1m precision), PnL: $%.4f",
				trade.Result, o.Side, o.EntryTime.Format(time.RFC3339), hit, bar.Timestamp.Format(time.RFC3339), trade.PnL)
			closed = true
			break
		}

		if !closed {
			still = append(still, o)
		}
	}
	e.active = still
}

// closeRemaining force-closes every order still active at the end of
// the run at the last bar's close. An order admitted at the final bar
// has seen no price action yet; it stays active instead of completing
// with a zero duration.
func (e *Engine) closeRemaining(last candle.Candle) {
	var still []order.Order
	for _, o := range e.active {
		if !o.EntryTime.Before(last.Timestamp) {
			utils.GetLogger().Printf("Engine | %s order from %s left active at backtest end, no bars after entry",
				o.Side, o.EntryTime.Format(time.RFC3339))
			still = append(still, o)
			continue
		}
		trade := o.Close(last.Timestamp, last.Close, order.HitTimeout)
		e.completed = append(e.completed, trade)
		utils.GetLogger().Printf("Engine | Closed remaining %s order at backtest end: Entry=$%.4f, Exit=$%.4f, PnL=$%.4f",
			o.Side, o.EntryPrice, last.Close, trade.PnL)
	}
	e.active = still
}

// ActiveOrderCount returns how many orders are currently open.
func (e *Engine) ActiveOrderCount() int {
	return len(e.active)
}

// precisionWindow returns the 1m bars with from < timestamp <= to.
func precisionWindow(precision []candle.Candle, from, to time.Time) []candle.Candle {
	lo := sort.Search(len(precision), func(i int) bool {
		return precision[i].Timestamp.After(from)
	})
	hi := sort.Search(len(precision), func(i int) bool {
		return precision[i].Timestamp.After(to)
	})
	return precision[lo:hi]
}

// parseClock parses "HH:MM" into minutes of day, falling back to the
// given default on malformed input.
func parseClock(s, fallback string) int {
	t, err := time.Parse("15:04", s)
	if err != nil {
		if s != "" {
			utils.GetLogger().Printf("Engine | Invalid time-of-day %q, falling back to %s", s, fallback)
		}
		t, _ = time.Parse("15:04", fallback)
	}
	return t.Hour()*60 + t.Minute()
}

// withinTradingWindow checks a bar's time-of-day against the admission
// window. A window with start > end wraps midnight.
func withinTradingWindow(ts time.Time, startMin, endMin int) bool {
	m := ts.Hour()*60 + ts.Minute()
	if startMin <= endMin {
		return m >= startMin && m <= endMin
	}
	return m >= startMin || m <= endMin
}
