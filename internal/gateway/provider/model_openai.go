package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"niftybot/internal/logger"

	"github.com/tidwall/gjson"
)

const (
	defaultChatTimeout = 120 * time.Second
	defaultRetries     = 2
)

// OpenAIChatClient talks to OpenAI compatible chat completion endpoints
// (/v1/chat/completions), including xAI.
type OpenAIChatClient struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	// Retries on 429/5xx: 0 means 2, negative disables retries.
	MaxRetries   int
	ExtraHeaders map[string]string
	HTTPClient   *http.Client
}

func (c *OpenAIChatClient) endpoint() string {
	url := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

func (c *OpenAIChatClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultChatTimeout
	}
	return &http.Client{Timeout: timeout}
}

func maskSecret(v string) string {
	if len(v) > 4 {
		return "****" + v[len(v)-4:]
	}
	return "****"
}

// CallWithMessages sends one system/user exchange and returns the first choice's content.
// Every failure wraps ErrSourceUnavailable.
func (c *OpenAIChatClient) CallWithMessages(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	maxRetries := c.MaxRetries
	switch {
	case maxRetries < 0:
		maxRetries = 0
	case maxRetries == 0:
		maxRetries = defaultRetries
	}
	url := c.endpoint()

	messages := make([]map[string]string, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": userPrompt})
	body := map[string]any{"model": c.Model, "messages": messages}
	if c.Temperature > 0 {
		body["temperature"] = c.Temperature
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrSourceUnavailable, err)
	}

	auth := "none"
	if c.APIKey != "" {
		auth = "Bearer " + maskSecret(c.APIKey)
	}
	logger.Debugf("[AI] POST %s model=%s auth=%s bytes=%d", url, c.Model, auth, len(payload))

	httpc := c.httpClient()
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("%w: build request: %v", ErrSourceUnavailable, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}
		for k, v := range c.ExtraHeaders {
			req.Header.Set(k, v)
		}

		resp, err := httpc.Do(req)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		raw, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return "", fmt.Errorf("%w: read response: %v", ErrSourceUnavailable, readErr)
		}

		if resp.StatusCode/100 == 2 {
			choices := gjson.GetBytes(raw, "choices")
			if !choices.IsArray() || len(choices.Array()) == 0 {
				return "", fmt.Errorf("%w: response has no choices", ErrSourceUnavailable)
			}
			content := choices.Get("0.message.content").String()
			if strings.TrimSpace(content) == "" {
				return "", fmt.Errorf("%w: empty message content", ErrSourceUnavailable)
			}
			return content, nil
		}

		msg := strings.TrimSpace(gjson.GetBytes(raw, "error.message").String())
		if msg == "" {
			msg = resp.Status
		}
		lastErr = fmt.Errorf("%w: status=%d: %s", ErrSourceUnavailable, resp.StatusCode, msg)
		if !retryable(resp.StatusCode) || attempt == maxRetries {
			break
		}
		wait := retryAfter(resp.Header.Get("Retry-After"), attempt)
		logger.Warnf("[AI] %s returned %d, retrying in %s", c.Model, resp.StatusCode, wait)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrSourceUnavailable, ctx.Err())
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfter honours a numeric Retry-After header, else backs off 0.8s, 1.6s, 3.2s... capped at 8s.
func retryAfter(header string, attempt int) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	wait := (800 * time.Millisecond) << attempt
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}
	return wait
}

// ChatSource is the direct API variant of Source.
type ChatSource struct {
	name   string
	system string
	client *OpenAIChatClient
}

func NewChatSource(name, systemPrompt string, client *OpenAIChatClient) *ChatSource {
	return &ChatSource{name: name, system: systemPrompt, client: client}
}

func (s *ChatSource) Name() string { return s.name }

func (s *ChatSource) Fetch(ctx context.Context, prompt string) (string, error) {
	logger.LogPrompt(s.name, s.system, prompt)
	out, err := s.client.CallWithMessages(ctx, s.system, prompt)
	if err != nil {
		return "", err
	}
	logger.LogReply(s.name, out)
	return out, nil
}
