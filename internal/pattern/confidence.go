package pattern

import (
	"github.com/amirphl/xau-signals/internal/candle"
	"github.com/amirphl/xau-signals/internal/indicator"
)

const (
	// maxLineDistancePct is the body-to-line distance at which
	// confidence bottoms out.
	maxLineDistancePct = 0.5

	counterTrendPenalty = 25
	engulfingBonus      = 5

	minConfidence = 10
	maxConfidence = 95
)

// scoreConfidence rates a signal from the distance between the newest
// candle's body and the SuperTrend line at that timestamp. A body
// touching or crossing the line scores distance zero; a distance of
// maxLineDistancePct or more scores zero base confidence, linear in
// between. Counter-trend signals are penalized, engulfing signals get a
// small bonus, and the result is clamped to [minConfidence, maxConfidence].
func (d *Detector) scoreConfidence(side Side, pat Pattern, c3 candle.Candle) float64 {
	state := indicator.TrendAt(d.trend, c3.Timestamp)
	if state == nil {
		return 0
	}

	dist := bodyLineDistancePct(c3, state.Line)

	confidence := (1 - dist/maxLineDistancePct) * 100
	if confidence < 0 {
		confidence = 0
	}

	counterTrend := (side == SideLong && state.Trend == indicator.TrendDown) ||
		(side == SideShort && state.Trend == indicator.TrendUp)
	if counterTrend {
		confidence -= counterTrendPenalty
		if confidence < minConfidence {
			confidence = minConfidence
		}
	}

	if pat == PatternEngulfing {
		confidence += engulfingBonus
		if confidence > maxConfidence {
			confidence = maxConfidence
		}
	}

	if confidence < minConfidence {
		confidence = minConfidence
	}
	if confidence > maxConfidence {
		confidence = maxConfidence
	}
	return confidence
}

// bodyLineDistancePct measures how far the candle body sits from the
// trend line, as a percentage of the line price. A body straddling the
// line counts as a perfect touch.
func bodyLineDistancePct(c candle.Candle, line float64) float64 {
	if line <= 0 {
		return maxLineDistancePct
	}

	top := c.BodyTop()
	bottom := c.BodyBottom()
	if bottom <= line && line <= top {
		return 0
	}

	dist := line - top
	if bottom > line {
		dist = bottom - line
	}
	if dist < 0 {
		dist = -dist
	}
	return dist / line * 100
}
