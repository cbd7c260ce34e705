package slack

import (
	"context"
	"fmt"
	"net/http"
	"time"

	slackapi "github.com/slack-go/slack"
)

// Block is a Block Kit layout block
type Block = slackapi.Block

// Header returns a plain-text header block
func Header(text string) Block {
	return slackapi.NewHeaderBlock(slackapi.NewTextBlockObject(slackapi.PlainTextType, text, true, false))
}

// Section returns a mrkdwn section block
func Section(text string) Block {
	return slackapi.NewSectionBlock(slackapi.NewTextBlockObject(slackapi.MarkdownType, text, false, false), nil, nil)
}

// Divider returns a divider block
func Divider() Block {
	return slackapi.NewDividerBlock()
}

// Webhook posts messages to a Slack incoming webhook
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (w *Webhook) WithHTTPClient(client *http.Client) *Webhook {
	w.client = client
	return w
}

// Post sends a message. Text is the notification fallback when blocks are present.
func (w *Webhook) Post(ctx context.Context, text string, blocks ...Block) error {
	msg := &slackapi.WebhookMessage{Text: text}
	if len(blocks) > 0 {
		msg.Blocks = &slackapi.Blocks{BlockSet: blocks}
	}

	if err := slackapi.PostWebhookCustomHTTPContext(ctx, w.url, w.client, msg); err != nil {
		return fmt.Errorf("slack webhook failed: %w", err)
	}
	return nil
}
