package notifier

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/xau-signals/internal/backtest"
	"github.com/amirphl/xau-signals/internal/pattern"
)

func TestFormatSignal(t *testing.T) {
	sig := pattern.Signal{
		Timestamp:  time.Date(2024, 1, 2, 16, 45, 0, 0, time.UTC),
		Side:       pattern.SideShort,
		Pattern:    pattern.PatternEngulfing,
		EntryPrice: 1999,
		Confidence: 85,
		IsStrong:   true,
	}

	msg := FormatSignal(sig)
	assert.Contains(t, msg, "SHORT")
	assert.Contains(t, msg, "STRONG")
	assert.Contains(t, msg, "ENGULFING")
	assert.Contains(t, msg, "1999.00")
	assert.Contains(t, msg, "85%")
	assert.Contains(t, msg, "2024-01-02 16:45")
}

func TestFormatSummary(t *testing.T) {
	s := backtest.Summary{
		TotalTrades: 5,
		Wins:        3,
		Losses:      2,
		WinRate:     60,
		TotalPnL:    12,
	}

	msg := FormatSummary(s)
	assert.Contains(t, msg, "Trades: 5")
	assert.Contains(t, msg, "W 3 / L 2")
	assert.Contains(t, msg, "60.0%")
	assert.Contains(t, msg, "12.00 USD")
}

func TestTelegramNotify(t *testing.T) {
	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotChat = r.FormValue("chat_id")
		gotText = r.FormValue("text")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegram("token123", "chat456")
	n.SetBaseURL(srv.URL)

	require.NoError(t, n.Notify("hello"))
	assert.Equal(t, "/bottoken123/sendMessage", gotPath)
	assert.Equal(t, "chat456", gotChat)
	assert.Equal(t, "hello", gotText)
}

func TestTelegramNotifyFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewTelegram("token", "chat")
	n.SetBaseURL(srv.URL)
	assert.Error(t, n.Notify("hello"))
}

func TestNopNotifier(t *testing.T) {
	assert.NoError(t, NopNotifier{}.Notify("anything"))
}
