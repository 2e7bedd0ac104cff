package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/notifier"
)

const defaultAPIURL = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiURL   string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) (*Telegram, error) {
	if botToken == "" {
		return nil, fmt.Errorf("telegram: bot_token is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("telegram: chat_id is required")
	}
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiURL:   defaultAPIURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Send(ctx context.Context, event notifier.Event) error {
	return t.sendMessage(ctx, formatEvent(event))
}

func formatEvent(e notifier.Event) string {
	var sb strings.Builder

	if e.Status == notifier.StatusFailed {
		sb.WriteString(fmt.Sprintf("❌ *%s* backtest failed\n", e.Symbol))
		sb.WriteString(fmt.Sprintf("💡 %s\n", e.Error))
		sb.WriteString(fmt.Sprintf("🆔 %s", e.JobID))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("📊 *%s* SMA %d/%d\n", e.Symbol, e.FastWindow, e.SlowWindow))
	if e.Empty {
		sb.WriteString("No data returned for the range\n")
	} else {
		sb.WriteString(fmt.Sprintf("🔁 Enters: %d, Exits: %d\n", e.EnterCount, e.ExitCount))
		sb.WriteString(fmt.Sprintf("💰 Return: %.2f%%\n", e.CumulativeReturn*100))
	}

	if e.LastAction != "" {
		emoji := "📈"
		if e.LastAction == core.ActionExit {
			emoji = "📉"
		}
		sb.WriteString(fmt.Sprintf("%s Last: %s at %.2f on %s\n",
			emoji, e.LastAction, e.LastActionPrice, e.LastActionDate.Format(core.DateLayout)))
	}

	for _, a := range e.Alerts {
		sb.WriteString(fmt.Sprintf("⚠️ %s\n", a.Message))
	}

	sb.WriteString(fmt.Sprintf("🆔 %s", e.JobID))
	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
