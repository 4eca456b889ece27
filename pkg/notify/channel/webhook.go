package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/txn2/helix/pkg/notify"
)

// DefaultWebhookTimeout bounds a single push delivery.
const DefaultWebhookTimeout = 10 * time.Second

// WebhookConfig configures the webhook push channel.
type WebhookConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
	Client  *http.Client
}

// WebhookPusher implements notify.PushSender by POSTing the
// notification as JSON to a push gateway.
type WebhookPusher struct {
	url    string
	token  string
	client *http.Client
}

// pushPayload is the body sent to the push gateway.
type pushPayload struct {
	RecipientID  string              `json:"recipientId"`
	Notification notify.Notification `json:"notification"`
}

// NewWebhookPusher creates a webhook push channel.
func NewWebhookPusher(cfg WebhookConfig) (*WebhookPusher, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook url is required")
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultWebhookTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &WebhookPusher{url: cfg.URL, token: cfg.Token, client: client}, nil
}

// SendPush delivers n to the push gateway. Any non-2xx response is a
// failure.
func (p *WebhookPusher) SendPush(ctx context.Context, recipientID string, n notify.Notification) error {
	body, err := json.Marshal(pushPayload{RecipientID: recipientID, Notification: n})
	if err != nil {
		return fmt.Errorf("marshaling push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting push notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// Verify interface compliance.
var _ notify.PushSender = (*WebhookPusher)(nil)
