package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"techbriefing/internal/domain"
	"techbriefing/internal/ports"
)

// TelegramNotifier posts briefings and alerts to a Telegram chat via
// the bot API. Intended as the low-latency alert channel next to mail.
type TelegramNotifier struct {
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier registers bot token and chat identifier.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// SendBriefing posts the plain-text rendering of the briefing.
func (n *TelegramNotifier) SendBriefing(ctx context.Context, briefing *domain.Briefing) error {
	return n.post(ctx, briefing.ContentText)
}

// SendAlert posts a short operational alert.
func (n *TelegramNotifier) SendAlert(ctx context.Context, title, message string) error {
	return n.post(ctx, fmt.Sprintf("⚠ %s\n%s", title, message))
}

func (n *TelegramNotifier) post(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}
	return nil
}
