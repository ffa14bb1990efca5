package crawler

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/xau-signals/internal/candle"
	"github.com/amirphl/xau-signals/internal/db"
	"github.com/amirphl/xau-signals/internal/utils"
)

// ImportCSV loads candles from a CSV file into storage. Expected
// columns: timestamp,open,high,low,close[,volume]. A header row is
// detected and skipped. Malformed rows are logged and dropped.
func ImportCSV(ctx context.Context, storage db.Storage, path, timeframe string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("crawler: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	var candles []candle.Candle
	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("crawler: read %s line %d: %w", path, line+1, err)
		}
		line++

		if line == 1 && isHeader(record) {
			continue
		}

		c, err := parseRecord(record, timeframe)
		if err != nil {
			utils.GetLogger().Printf("Import | Skipping line %d of %s: %v", line, path, err)
			continue
		}
		candles = append(candles, c)
	}

	if len(candles) == 0 {
		return 0, fmt.Errorf("crawler: no valid candles in %s: %w", path, db.ErrNoData)
	}

	candles = candle.Normalize(candles, timeframe)
	if err := storage.SaveCandles(ctx, candles); err != nil {
		return 0, fmt.Errorf("crawler: save imported candles: %w", err)
	}

	log.Printf("Imported %d %s candles from %s", len(candles), timeframe, path)
	return len(candles), nil
}

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := parseTimestamp(record[0])
	return err != nil
}

func parseRecord(record []string, timeframe string) (candle.Candle, error) {
	if len(record) < 5 {
		return candle.Candle{}, fmt.Errorf("expected at least 5 columns, got %d", len(record))
	}

	ts, err := parseTimestamp(record[0])
	if err != nil {
		return candle.Candle{}, fmt.Errorf("parse timestamp: %w", err)
	}

	vals := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
		if err != nil {
			return candle.Candle{}, fmt.Errorf("parse column %d: %w", i+2, err)
		}
		vals[i] = v
	}

	var volume int64
	if len(record) > 5 && strings.TrimSpace(record[5]) != "" {
		volume, _ = strconv.ParseInt(strings.TrimSpace(record[5]), 10, 64)
	}

	return candle.New(ts, vals[0], vals[1], vals[2], vals[3], volume, timeframe)
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
