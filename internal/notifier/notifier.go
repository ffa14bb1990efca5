// Package notifier pushes signal and summary alerts to external
// channels.
package notifier

import (
	"fmt"
	"strings"

	"github.com/amirphl/xau-signals/internal/backtest"
	"github.com/amirphl/xau-signals/internal/pattern"
)

// Notifier delivers formatted messages. Delivery failures are the
// implementation's problem to log; callers never abort on them.
type Notifier interface {
	Notify(message string) error
}

// NopNotifier discards every message.
type NopNotifier struct{}

func (NopNotifier) Notify(string) error { return nil }

// FormatSignal renders a detected signal as an alert message.
func FormatSignal(sig pattern.Signal) string {
	var b strings.Builder

	emoji := "🔴"
	if sig.Side == pattern.SideLong {
		emoji = "🟢"
	}
	strength := ""
	if sig.IsStrong {
		strength = " 💪 STRONG"
	}

	fmt.Fprintf(&b, "%s XAU/USD %s SIGNAL%s\n", emoji, sig.Side, strength)
	fmt.Fprintf(&b, "Pattern: %s\n", sig.Pattern)
	fmt.Fprintf(&b, "Entry: %.2f\n", sig.EntryPrice)
	fmt.Fprintf(&b, "Confidence: %.0f%%\n", sig.Confidence)
	fmt.Fprintf(&b, "Time: %s", sig.Timestamp.UTC().Format("2006-01-02 15:04"))
	return b.String()
}

// FormatSummary renders a backtest summary as a report message.
func FormatSummary(s backtest.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 XAU/USD Backtest Report\n")
	fmt.Fprintf(&b, "Trades: %d (W %d / L %d)\n", s.TotalTrades, s.Wins, s.Losses)
	fmt.Fprintf(&b, "Win rate: %.1f%%\n", s.WinRate)
	fmt.Fprintf(&b, "Total PnL: %.2f USD (%.2f%%)\n", s.TotalPnL, s.TotalPnLPercentage)
	fmt.Fprintf(&b, "Avg win: %.2f / Avg loss: %.2f\n", s.AvgWin, s.AvgLoss)
	fmt.Fprintf(&b, "Long: %d (%.1f%%) / Short: %d (%.1f%%)\n", s.LongTrades, s.LongWinRate, s.ShortTrades, s.ShortWinRate)
	fmt.Fprintf(&b, "Engulfing: %d (%.1f%%) / Inside bar: %d (%.1f%%)", s.EngulfingTrades, s.EngulfingWinRate, s.InsideBarTrades, s.InsideBarWinRate)
	return b.String()
}
