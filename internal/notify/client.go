package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client posts messages to a chat webhook. Delivery is fire-and-forget from
// the engine's point of view; at-least-once is acceptable here.
type Client struct {
	webhookURL string
	httpClient *http.Client
}

func NewClient(httpClient *http.Client, webhookURL string) *Client {
	return &Client{
		webhookURL: strings.TrimSpace(webhookURL),
		httpClient: httpClient,
	}
}

type message struct {
	Text string `json:"text"`
}

func (c *Client) Send(ctx context.Context, text string) error {
	if c == nil || c.webhookURL == "" {
		return nil
	}
	raw, err := json.Marshal(message{Text: text})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
