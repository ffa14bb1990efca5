package candle

import (
	"sort"
	"time"

	"github.com/amirphl/xau-signals/internal/tfutils"
	"github.com/amirphl/xau-signals/internal/utils"
)

// SortAsc sorts candles chronologically in place and returns the slice.
// Ascending order is the canonical internal representation; Descending
// provides the newest-first view used by signal scans.
func SortAsc(candles []Candle) []Candle {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	return candles
}

// Descending returns a newest-first copy of an ascending series.
func Descending(asc []Candle) []Candle {
	out := make([]Candle, len(asc))
	for i, c := range asc {
		out[len(asc)-1-i] = c
	}
	return out
}

// FilterValid drops candles that violate the OHLC invariant and keeps
// the remainder, logging each rejected row.
func FilterValid(candles []Candle) []Candle {
	out := make([]Candle, 0, len(candles))
	for i := range candles {
		if err := candles[i].Validate(); err != nil {
			utils.GetLogger().Printf("Series | Dropping malformed candle at %s: %v", candles[i].Timestamp, err)
			continue
		}
		out = append(out, candles[i])
	}
	return out
}

// Normalize sorts candles, truncates timestamps to the timeframe bucket
// and eliminates duplicate buckets, keeping the first occurrence.
func Normalize(candles []Candle, timeframe string) []Candle {
	dur := tfutils.GetTimeframeDuration(timeframe)
	if dur == 0 || len(candles) == 0 {
		return candles
	}

	SortAsc(candles)

	seen := make(map[time.Time]struct{}, len(candles))
	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		c.Timestamp = c.Timestamp.Truncate(dur)
		c.Timeframe = timeframe
		if _, ok := seen[c.Timestamp]; ok {
			continue
		}
		seen[c.Timestamp] = struct{}{}
		out = append(out, c)
	}
	return out
}

// CheckGaps counts missing buckets in an ascending series. Market
// closures produce legitimate gaps, so callers treat the count as a
// data-quality warning rather than an error.
func CheckGaps(asc []Candle, timeframe string) int {
	dur := tfutils.GetTimeframeDuration(timeframe)
	if dur == 0 || len(asc) < 2 {
		return 0
	}

	missing := 0
	for i := 1; i < len(asc); i++ {
		span := asc[i].Timestamp.Sub(asc[i-1].Timestamp)
		if span > dur {
			missing += int(span/dur) - 1
		}
	}
	return missing
}

// Covers reports whether the precision series fully spans the signal
// series' time range.
func Covers(precision, signal []Candle) bool {
	if len(precision) == 0 || len(signal) == 0 {
		return false
	}
	return !precision[0].Timestamp.After(signal[0].Timestamp) &&
		!precision[len(precision)-1].Timestamp.Before(signal[len(signal)-1].Timestamp)
}
