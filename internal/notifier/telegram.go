package notifier

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/amirphl/xau-signals/internal/utils"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier delivers messages to a Telegram chat via the Bot
// API.
type TelegramNotifier struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

// NewTelegram builds a notifier for the given bot token and chat.
func NewTelegram(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		baseURL: telegramAPIBase,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// SetBaseURL overrides the API endpoint, used by tests.
func (t *TelegramNotifier) SetBaseURL(u string) { t.baseURL = u }

// Notify sends the message. Failures are logged and returned but
// callers are expected to keep going.
func (t *TelegramNotifier) Notify(message string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	resp, err := t.client.PostForm(endpoint, url.Values{
		"chat_id": {t.chatID},
		"text":    {message},
	})
	if err != nil {
		utils.GetLogger().Printf("Telegram | Send failed: %v", err)
		return fmt.Errorf("notifier: telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		utils.GetLogger().Printf("Telegram | Send failed with status %d: %s", resp.StatusCode, string(body))
		return fmt.Errorf("notifier: telegram status %d", resp.StatusCode)
	}
	return nil
}
