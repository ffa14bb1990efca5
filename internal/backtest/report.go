package backtest

import (
	"log"

	"github.com/amirphl/xau-signals/internal/order"
	"github.com/amirphl/xau-signals/internal/pattern"
)

// Summary is the aggregate of a completed-trade list.
type Summary struct {
	TotalTrades int     `json:"total_trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"`

	TotalPnL           float64 `json:"total_pnl"`
	TotalPnLPercentage float64 `json:"total_pnl_percentage"`
	AvgWin             float64 `json:"avg_win"`
	AvgLoss            float64 `json:"avg_loss"`

	LongTrades   int     `json:"long_trades"`
	LongWins     int     `json:"long_wins"`
	LongWinRate  float64 `json:"long_win_rate"`
	ShortTrades  int     `json:"short_trades"`
	ShortWins    int     `json:"short_wins"`
	ShortWinRate float64 `json:"short_win_rate"`

	EngulfingTrades   int     `json:"engulfing_trades"`
	EngulfingWins     int     `json:"engulfing_wins"`
	EngulfingWinRate  float64 `json:"engulfing_win_rate"`
	InsideBarTrades   int     `json:"inside_bar_trades"`
	InsideBarWins     int     `json:"inside_bar_wins"`
	InsideBarWinRate  float64 `json:"inside_bar_win_rate"`
	AvgDurationMinute float64 `json:"avg_duration_minutes"`
}

// Summarize reduces a completed-trade list to its statistics. Pure; the
// trade list is never modified.
func Summarize(trades []order.CompletedTrade) Summary {
	var s Summary
	s.TotalTrades = len(trades)
	if s.TotalTrades == 0 {
		return s
	}

	var winPnL, lossPnL float64
	var totalMinutes float64

	for _, t := range trades {
		s.TotalPnL += t.PnL
		s.TotalPnLPercentage += t.PnLPercentage
		totalMinutes += float64(t.DurationMinutes())

		win := t.Result == order.ResultWin
		if win {
			s.Wins++
			winPnL += t.PnL
		} else {
			s.Losses++
			lossPnL += t.PnL
		}

		switch t.Side {
		case pattern.SideLong:
			s.LongTrades++
			if win {
				s.LongWins++
			}
		case pattern.SideShort:
			s.ShortTrades++
			if win {
				s.ShortWins++
			}
		}

		switch t.Pattern {
		case pattern.PatternEngulfing:
			s.EngulfingTrades++
			if win {
				s.EngulfingWins++
			}
		case pattern.PatternInsideBar:
			s.InsideBarTrades++
			if win {
				s.InsideBarWins++
			}
		}
	}

	s.WinRate = rate(s.Wins, s.TotalTrades)
	s.LongWinRate = rate(s.LongWins, s.LongTrades)
	s.ShortWinRate = rate(s.ShortWins, s.ShortTrades)
	s.EngulfingWinRate = rate(s.EngulfingWins, s.EngulfingTrades)
	s.InsideBarWinRate = rate(s.InsideBarWins, s.InsideBarTrades)

	if s.Wins > 0 {
		s.AvgWin = winPnL / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = lossPnL / float64(s.Losses)
	}
	s.AvgDurationMinute = totalMinutes / float64(s.TotalTrades)

	return s
}

func rate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

// PrintSummary logs the aggregate statistics of a run.
func PrintSummary(s Summary) {
	log.Printf("Backtest Summary:")
	log.Printf("  Trades=%d, Wins=%d, Losses=%d, WinRate=%.2f%%",
		s.TotalTrades, s.Wins, s.Losses, s.WinRate)
	log.Printf("  TotalPnL=$%.4f, TotalPnL%%=%.4f%%, AvgWin=$%.4f, AvgLoss=$%.4f",
		s.TotalPnL, s.TotalPnLPercentage, s.AvgWin, s.AvgLoss)
	log.Printf("  LONG: %d trades (WinRate=%.2f%%), SHORT: %d trades (WinRate=%.2f%%)",
		s.LongTrades, s.LongWinRate, s.ShortTrades, s.ShortWinRate)
	log.Printf("  Engulfing: %d trades (WinRate=%.2f%%), Inside Bar: %d trades (WinRate=%.2f%%)",
		s.EngulfingTrades, s.EngulfingWinRate, s.InsideBarTrades, s.InsideBarWinRate)
	log.Printf("  Average Trade Duration: %.1f minutes", s.AvgDurationMinute)
}
