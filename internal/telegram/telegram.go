// Package telegram publishes the formatted digest to a chat or channel via
// the Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aidigest/internal/logger"
	"aidigest/internal/retry"
)

// Telegram caps message text at 4096 chars; leave headroom for entities.
const maxMessageLen = 4000

// Client talks to the Bot API for one bot token.
type Client struct {
	token  string
	chatID string
	http   *http.Client
	retry  retry.Config
	apiURL string
}

func NewClient(token, chatID string) *Client {
	return &Client{
		token:  token,
		chatID: chatID,
		http:   &http.Client{Timeout: 30 * time.Second},
		retry:  retry.Config{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
		apiURL: "https://api.telegram.org",
	}
}

// SendMessage posts HTML-formatted text, retrying transient failures.
// Messages over the Telegram limit are truncated, not split.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	if len(text) > maxMessageLen {
		text = truncateHTML(text, maxMessageLen)
	}

	err := retry.Do(ctx, c.retry, func() error {
		return c.sendOnce(ctx, text)
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	logger.Info("digest sent to telegram", "chat_id", c.chatID, "length", len(text))
	return nil
}

func (c *Client) sendOnce(ctx context.Context, text string) error {
	payload := map[string]any{
		"chat_id":                  c.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &retry.Permanent{Err: fmt.Errorf("marshal payload: %w", err)}
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &retry.Permanent{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	apiErr := fmt.Errorf("telegram API status %d: %s", resp.StatusCode, respBody)

	// 4xx means the request itself is wrong (bad token, bad markup);
	// retrying will not help. 429 is the exception.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return &retry.Permanent{Err: apiErr}
	}
	return apiErr
}

// truncateHTML cuts text at the limit without severing markup: an entry
// boundary when one lies late enough, otherwise a line boundary. Lines in
// the digest carry only complete tags, so both cuts keep the HTML valid.
func truncateHTML(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndex(cut, "\n\n"); idx > limit/2 {
		return cut[:idx]
	}
	if idx := strings.LastIndexByte(cut, '\n'); idx > 0 {
		return cut[:idx]
	}
	// Single unbroken line: drop any tag the cut landed inside.
	if open := strings.LastIndexByte(cut, '<'); open > strings.LastIndexByte(cut, '>') {
		cut = cut[:open]
	}
	return cut
}
