// Package impl_publisher delivers outbox messages to the outside world.
package impl_publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PedroCamargo-dev/psp-transactions-service/internal/ports/gateway/messaging"
)

var (
	_ messaging.Publisher = (*WebhookPublisher)(nil)
	_ messaging.Publisher = (*RedisStreamPublisher)(nil)
)

var ErrDeliveryRejected = errors.New("publisher: delivery rejected by receiver")

const userAgent = "psp-transactions-service/1.0"

type WebhookPublisher struct {
	url    string
	client *http.Client
}

func NewWebhookPublisher(url string, timeout time.Duration) *WebhookPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &WebhookPublisher{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Publish POSTs the payload as JSON. The topic travels in X-Event-Type and
// every header is forwarded with an X- prefix.
func (p *WebhookPublisher) Publish(ctx context.Context, topic string, payload []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Event-Type", topic)
	for k, v := range headers {
		req.Header.Set("X-"+k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrDeliveryRejected, resp.StatusCode)
	}

	return nil
}
