package crawler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/xau-signals/internal/db"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestImportCSV(t *testing.T) {
	path := writeCSV(t, `timestamp,open,high,low,close,volume
2024-01-02 00:00:00,2000,2010,1990,2005,100
2024-01-02 00:15:00,2005,2015,2000,2010,120
`)

	storage := db.NewMemory()
	n, err := ImportCSV(context.Background(), storage, path, "15m")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stored, err := storage.GetCandles(context.Background(), "15m", base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 2005.0, stored[0].Close)
	assert.Equal(t, int64(100), stored[0].Volume)
	assert.Equal(t, "15m", stored[0].Timeframe)
}

func TestImportCSVWithoutHeader(t *testing.T) {
	path := writeCSV(t, "2024-01-02T00:00:00Z,2000,2010,1990,2005\n")

	n, err := ImportCSV(context.Background(), db.NewMemory(), path, "15m")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestImportCSVUnixTimestamps(t *testing.T) {
	// 1704153600 = 2024-01-02 00:00:00 UTC.
	path := writeCSV(t, "1704153600,2000,2010,1990,2005,0\n")

	storage := db.NewMemory()
	n, err := ImportCSV(context.Background(), storage, path, "15m")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := storage.GetCandles(context.Background(), "15m", base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, base, stored[0].Timestamp)
}

func TestImportCSVDropsMalformedRows(t *testing.T) {
	path := writeCSV(t, `timestamp,open,high,low,close
2024-01-02 00:00:00,2000,2010,1990,2005
2024-01-02 00:15:00,not-a-number,2015,2000,2010
2024-01-02 00:30:00,2010,2000,2020,2015
2024-01-02 00:45:00,2010,2020,2005,2015
`)

	n, err := ImportCSV(context.Background(), db.NewMemory(), path, "15m")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestImportCSVAllRowsInvalid(t *testing.T) {
	path := writeCSV(t, "timestamp,open,high,low,close\nbad,row,here,x,y\n")
	_, err := ImportCSV(context.Background(), db.NewMemory(), path, "15m")
	assert.Error(t, err)
}

func TestImportCSVMissingFile(t *testing.T) {
	_, err := ImportCSV(context.Background(), db.NewMemory(), "/nonexistent.csv", "15m")
	assert.Error(t, err)
}
