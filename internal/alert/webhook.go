package alert

import (
	"context"
	"time"

	"github.com/dwsmith1983/guardian/internal/fetch"
	"github.com/dwsmith1983/guardian/pkg/types"
)

const webhookTimeout = 10 * time.Second

// WebhookSink posts each owner alert as JSON. All deliveries go through one
// circuit-broken client.
type WebhookSink struct {
	url    string
	client *fetch.Client
}

// NewWebhookSink creates a webhook sink for url.
func NewWebhookSink(url string, opts ...fetch.Option) *WebhookSink {
	opts = append([]fetch.Option{fetch.WithTimeout(webhookTimeout)}, opts...)
	return &WebhookSink{
		url:    url,
		client: fetch.New("webhook", opts...),
	}
}

// Name returns the sink identifier.
func (s *WebhookSink) Name() string { return "webhook" }

// Send posts the alert to the webhook URL.
func (s *WebhookSink) Send(ctx context.Context, alert types.Alert) error {
	return s.client.PostJSON(ctx, s.url, alert)
}
