package notifier

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"niftybot/internal/logger"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// ErrNotConfigured reports a missing bot token or chat id.
var ErrNotConfigured = errors.New("telegram not configured")

const defaultTelegramAPI = "https://api.telegram.org"

// Telegram posts alerts to a chat through the Bot API. It does not retry;
// callers log failures.
type Telegram struct {
	BotToken  string
	ChatID    string
	ParseMode string

	client *resty.Client
}

func NewTelegram(botToken, chatID string) *Telegram {
	return NewTelegramWithAPI(defaultTelegramAPI, botToken, chatID)
}

// NewTelegramWithAPI points the notifier at a Bot API compatible base URL.
func NewTelegramWithAPI(apiBase, botToken, chatID string) *Telegram {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(apiBase, "/"))
	client.SetTimeout(15 * time.Second)
	client.SetHeader("Content-Type", "application/json")
	return &Telegram{BotToken: botToken, ChatID: chatID, ParseMode: "Markdown", client: client}
}

// SendText sends text once, resending as plain text if Telegram rejects the
// Markdown entities.
func (t *Telegram) SendText(text string) error {
	if strings.TrimSpace(t.BotToken) == "" || strings.TrimSpace(t.ChatID) == "" {
		return ErrNotConfigured
	}
	text = truncateMessage(text)
	status, desc, err := t.send(text, t.ParseMode)
	if err != nil {
		return err
	}
	if status == http.StatusBadRequest && t.ParseMode != "" && strings.Contains(strings.ToLower(desc), "parse entities") {
		logger.Warnf("telegram rejected %s entities, resending as plain text: %s", t.ParseMode, desc)
		status, desc, err = t.send(text, "")
		if err != nil {
			return err
		}
	}
	if status/100 != 2 {
		return fmt.Errorf("telegram status=%d: %s", status, desc)
	}
	return nil
}

func (t *Telegram) send(text, parseMode string) (int, string, error) {
	payload := map[string]any{
		"chat_id": t.ChatID,
		"text":    text,
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}
	resp, err := t.client.R().
		SetBody(payload).
		Post("/bot" + t.BotToken + "/sendMessage")
	if err != nil {
		return 0, "", fmt.Errorf("telegram request failed: %w", t.redact(err))
	}
	desc := gjson.GetBytes(resp.Body(), "description").String()
	if desc == "" {
		desc = resp.Status()
	}
	return resp.StatusCode(), desc, nil
}

// redact strips the request URL, which carries the bot token, from err.
func (t *Telegram) redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	if t.BotToken != "" && strings.Contains(err.Error(), t.BotToken) {
		return errors.New(strings.ReplaceAll(err.Error(), t.BotToken, "<redacted>"))
	}
	return err
}
