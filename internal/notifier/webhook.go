package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hashicorp/go-retryablehttp"

	"go-threatguard/internal/logging"
)

// WebhookSink posts every notice to one fixed webhook URL, for operators
// following all communities from a single channel.
type WebhookSink struct {
	url    string
	client *retryablehttp.Client
}

func NewWebhookSink(url string) *WebhookSink {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil
	return &WebhookSink{url: url, client: client}
}

func (w *WebhookSink) Notify(n Notice) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := w.send(ctx, n); err != nil {
			logging.Warn("Webhook notice for guild %s failed: %v", n.Community, err)
		}
	}()
}

func (w *WebhookSink) send(ctx context.Context, n Notice) error {
	embed := BuildEmbed(n)
	embed.Footer.Text = fmt.Sprintf("Threat Guard • guild %s", n.Community)

	body, err := json.Marshal(&discordgo.WebhookParams{Embeds: []*discordgo.MessageEmbed{embed}})
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
