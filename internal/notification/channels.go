package notification

import (
	"context"
	"errors"
	"log"
	"strings"

	"taskflow-backend/internal/auth/repository"
	"taskflow-backend/pkg/fcm"
	"taskflow-backend/pkg/slack"
)

// SlackPoster is satisfied by *slack.Webhook
type SlackPoster interface {
	Post(ctx context.Context, text string, blocks ...slack.Block) error
}

// SlackChannel posts messages to an incoming webhook
type SlackChannel struct {
	webhook SlackPoster
}

func NewSlackChannel(webhook SlackPoster) *SlackChannel {
	return &SlackChannel{webhook: webhook}
}

func (s *SlackChannel) Name() string { return "slack" }

func (s *SlackChannel) Deliver(ctx context.Context, msg Message) error {
	return s.webhook.Post(ctx, msg.Text, msg.Blocks...)
}

// PushSender is satisfied by *fcm.Client
type PushSender interface {
	SendToTopic(ctx context.Context, topic string, notification fcm.NotificationData) error
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

// PushChannel sends FCM messages to a topic and to registered devices
type PushChannel struct {
	sender  PushSender
	topic   string
	devices repository.DeviceTokenRepository
}

// NewPushChannel creates an FCM channel. An empty topic or nil device store disables that leg.
func NewPushChannel(sender PushSender, topic string, devices repository.DeviceTokenRepository) *PushChannel {
	return &PushChannel{sender: sender, topic: topic, devices: devices}
}

func (p *PushChannel) Name() string { return "fcm" }

func (p *PushChannel) Deliver(ctx context.Context, msg Message) error {
	data := fcm.NotificationData{
		Title: msg.Title,
		Body:  plainText(msg.Text),
		Data:  msg.Data,
	}

	var errs []error
	if p.topic != "" {
		if err := p.sender.SendToTopic(ctx, p.topic, data); err != nil {
			errs = append(errs, err)
		}
	}

	if p.devices != nil {
		tokens, err := p.devices.ListTokens(ctx)
		if err != nil {
			errs = append(errs, err)
		} else if len(tokens) > 0 {
			var tokenStrings []string
			for _, t := range tokens {
				tokenStrings = append(tokenStrings, t.Token)
			}
			failed, err := p.sender.SendToDevices(ctx, tokenStrings, data)
			if err != nil {
				errs = append(errs, err)
			}
			// Cleanup failed tokens
			for _, token := range failed {
				if err := p.devices.DeleteToken(ctx, token); err != nil {
					log.Printf("[Notify] Failed to remove stale device token: %v", err)
				}
			}
		}
	}
	return errors.Join(errs...)
}

var mrkdwnStripper = strings.NewReplacer("*", "", "_", "")

func plainText(text string) string {
	return mrkdwnStripper.Replace(text)
}
