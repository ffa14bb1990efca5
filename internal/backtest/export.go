package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/amirphl/xau-signals/internal/order"
)

var exportHeader = []string{
	"entry_time", "exit_time", "signal_type", "pattern",
	"entry_price", "exit_price", "tp_price", "sl_price",
	"hit_type", "pnl", "pnl_percentage", "result",
	"duration_minutes", "confidence",
}

// ExportResults writes the completed trades to a timestamped CSV file
// under dir and returns its path.
func ExportResults(trades []order.CompletedTrade, dir, prefix string) (string, error) {
	if len(trades) == 0 {
		return "", fmt.Errorf("no trades to export")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, time.Now().Format("20060102_150405")))
	f, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(exportHeader); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	for _, t := range trades {
		row := []string{
			t.EntryTime.Format("2006-01-02 15:04:05"),
			t.ExitTime.Format("2006-01-02 15:04:05"),
			string(t.Side),
			string(t.Pattern),
			fmt.Sprintf("%.4f", t.EntryPrice),
			fmt.Sprintf("%.4f", t.ExitPrice),
			fmt.Sprintf("%.4f", t.TPPrice),
			fmt.Sprintf("%.4f", t.SLPrice),
			string(t.HitType),
			fmt.Sprintf("%.4f", t.PnL),
			fmt.Sprintf("%.4f", t.PnLPercentage),
			string(t.Result),
			fmt.Sprintf("%d", t.DurationMinutes()),
			fmt.Sprintf("%.0f", t.Confidence),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write trade row: %w", err)
		}
	}

	return filename, nil
}
