package pattern

import (
	"time"

	"github.com/amirphl/xau-signals/internal/candle"
	"github.com/amirphl/xau-signals/internal/indicator"
	"github.com/amirphl/xau-signals/internal/tfutils"
	"github.com/amirphl/xau-signals/internal/utils"
)

// DefaultMinAmplitudePct is the volatility floor applied when the
// amplitude prerequisite is enabled.
const DefaultMinAmplitudePct = 0.02

// Config holds detector parameters.
type Config struct {
	Timeframe string
	// RequireAmplitude gates detection on every window candle moving
	// more than MinAmplitudePct. Disabled in production.
	RequireAmplitude bool
	MinAmplitudePct  float64
}

// Detector maps a 3-candle window to an optional trading signal.
// Detection itself is pure; the optional trend states only add a
// confidence score.
type Detector struct {
	period           time.Duration
	requireAmplitude bool
	minAmplitudePct  float64
	trend            []indicator.TrendState
}

// NewDetector builds a detector. An unparseable timeframe falls back to
// 15m with a warning rather than failing the run.
func NewDetector(cfg Config) *Detector {
	period, err := tfutils.ParseTimeframe(cfg.Timeframe)
	if err != nil {
		utils.GetLogger().Printf("Detector | Unknown timeframe %q, falling back to 15m", cfg.Timeframe)
		period = 15 * time.Minute
	}

	minAmp := cfg.MinAmplitudePct
	if minAmp <= 0 {
		minAmp = DefaultMinAmplitudePct
	}

	return &Detector{
		period:           period,
		requireAmplitude: cfg.RequireAmplitude,
		minAmplitudePct:  minAmp,
	}
}

// SetTrendStates attaches precomputed SuperTrend values; signals
// detected afterwards carry a confidence score.
func (d *Detector) SetTrendStates(states []indicator.TrendState) {
	d.trend = states
}

// Detect inspects three consecutive candles ordered oldest to newest
// and returns a signal or nil. Engulfing is tried before inside bar;
// the first match wins.
func (d *Detector) Detect(c1, c2, c3 candle.Candle) *Signal {
	if d.requireAmplitude {
		for _, c := range []candle.Candle{c1, c2, c3} {
			if c.AmplitudePct() <= d.minAmplitudePct {
				return nil
			}
		}
	}

	if side, ok := d.checkEngulfing(c2, c3); ok {
		return d.newSignal(side, PatternEngulfing, c3)
	}
	if side, ok := d.checkInsideBar(c1, c2, c3); ok {
		return d.newSignal(side, PatternInsideBar, c3)
	}
	return nil
}

// checkEngulfing applies the two-candle engulfing rule to the most
// recent pair of the window (a older, b newer).
//
// SHORT: a up, b down, a.open > b.close.
// LONG:  a down, b up, a.open < b.close.
func (d *Detector) checkEngulfing(a, b candle.Candle) (Side, bool) {
	if a.IsUp() && b.IsDown() && a.Open > b.Close {
		return SideShort, true
	}
	if a.IsDown() && b.IsUp() && a.Open < b.Close {
		return SideLong, true
	}
	return "", false
}

// checkInsideBar applies the three-candle inside bar rule: the oldest
// candle's body must be smaller than the combined range of the two
// newer same-colored candles, and the middle body must contract
// relative to the oldest.
func (d *Detector) checkInsideBar(c1, c2, c3 candle.Candle) (Side, bool) {
	range1 := c1.BodyRange()
	range2 := c2.BodyRange()
	if range2 >= range1 {
		return "", false
	}

	var combined float64
	switch {
	case c2.IsDown() && c3.IsDown():
		combined = abs(c2.Open - c3.Close)
	case c2.IsUp() && c3.IsUp():
		combined = abs(c3.Close - c2.Open)
	default:
		// Mixed colors break the continuation structure.
		return "", false
	}

	if range1 >= combined {
		return "", false
	}

	if c1.IsUp() && c2.IsDown() && c3.IsDown() {
		return SideShort, true
	}
	if c1.IsDown() && c2.IsUp() && c3.IsUp() {
		return SideLong, true
	}
	return "", false
}

func (d *Detector) newSignal(side Side, pat Pattern, c3 candle.Candle) *Signal {
	sig := &Signal{
		Timestamp:  c3.Timestamp.Add(d.period),
		Side:       side,
		Pattern:    pat,
		EntryPrice: c3.Close,
	}
	if d.trend != nil {
		sig.Confidence = d.scoreConfidence(side, pat, c3)
		sig.IsStrong = sig.Confidence >= 80
	}
	return sig
}

// Scan slides the 3-candle window across a descending series (index 0
// = latest) from startIdx to endIdx inclusive, collecting every signal
// in scan order.
func (d *Detector) Scan(desc []candle.Candle, startIdx, endIdx int) []Signal {
	if len(desc) < startIdx+1 {
		utils.GetLogger().Printf("Detector | Not enough data for signal scan: need at least %d candles, got %d", startIdx+1, len(desc))
		return nil
	}
	if endIdx >= len(desc) {
		endIdx = len(desc) - 1
	}

	var signals []Signal
	for i := startIdx; i <= endIdx; i++ {
		if i < 3 {
			continue
		}
		// Descending layout: i-1 is the oldest of the triple, i-3 the newest.
		sig := d.Detect(desc[i-1], desc[i-2], desc[i-3])
		if sig != nil {
			signals = append(signals, *sig)
		}
	}
	return signals
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
