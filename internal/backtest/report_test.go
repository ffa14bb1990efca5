package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/amirphl/xau-signals/internal/order"
	"github.com/amirphl/xau-signals/internal/pattern"
)

func trade(side pattern.Side, pat pattern.Pattern, result order.Result, pnl float64, minutes int) order.CompletedTrade {
	entry := t0
	return order.CompletedTrade{
		EntryTime: entry,
		ExitTime:  entry.Add(time.Duration(minutes) * time.Minute),
		Side:      side,
		Pattern:   pat,
		Result:    result,
		PnL:       pnl,
		Duration:  time.Duration(minutes) * time.Minute,
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.TotalTrades)
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.TotalPnL)
}

func TestSummarize(t *testing.T) {
	trades := []order.CompletedTrade{
		trade(pattern.SideLong, pattern.PatternEngulfing, order.ResultWin, 6, 30),
		trade(pattern.SideLong, pattern.PatternEngulfing, order.ResultWin, 6, 60),
		trade(pattern.SideShort, pattern.PatternInsideBar, order.ResultWin, 6, 90),
		trade(pattern.SideShort, pattern.PatternInsideBar, order.ResultLoss, -3, 30),
		trade(pattern.SideLong, pattern.PatternEngulfing, order.ResultLoss, -3, 40),
	}

	s := Summarize(trades)

	assert.Equal(t, 5, s.TotalTrades)
	assert.Equal(t, 3, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.InDelta(t, 60.0, s.WinRate, 1e-9)

	assert.InDelta(t, 12.0, s.TotalPnL, 1e-9)
	assert.InDelta(t, 6.0, s.AvgWin, 1e-9)
	assert.InDelta(t, -3.0, s.AvgLoss, 1e-9)

	assert.Equal(t, 3, s.LongTrades)
	assert.Equal(t, 2, s.LongWins)
	assert.InDelta(t, 2.0/3.0*100, s.LongWinRate, 1e-9)
	assert.Equal(t, 2, s.ShortTrades)
	assert.Equal(t, 1, s.ShortWins)
	assert.InDelta(t, 50.0, s.ShortWinRate, 1e-9)

	assert.Equal(t, 3, s.EngulfingTrades)
	assert.Equal(t, 2, s.EngulfingWins)
	assert.Equal(t, 2, s.InsideBarTrades)
	assert.Equal(t, 1, s.InsideBarWins)

	assert.InDelta(t, 50.0, s.AvgDurationMinute, 1e-9)
}
