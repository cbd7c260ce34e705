package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// Runner is anything that can perform one reconciliation pass
type Runner interface {
	RunOnce(ctx context.Context) *BatchReport
}

// TriggerMessage is the optional JSON payload of a "run now" message
type TriggerMessage struct {
	Reason string `json:"reason"`
}

// PubSubTrigger runs the batch whenever a message arrives on the reconcile topic
type PubSubTrigger struct {
	client    *pubsub.Client
	runner    Runner
	topicName string
	subName   string
}

func NewPubSubTrigger(ctx context.Context, projectID, topicName, credentialsFile string, runner Runner) (*PubSubTrigger, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &PubSubTrigger{
		client:    client,
		runner:    runner,
		topicName: topicName,
		subName:   topicName + "-sub", // Convention: topic-sub
	}, nil
}

// Start blocks receiving messages until ctx is done
func (t *PubSubTrigger) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting reconcile trigger with topic: %s, subscription: %s", t.topicName, t.subName)

	sub, err := t.ensureSubscription(ctx)
	if err != nil {
		log.Printf("[PubSub] %v", err)
		return
	}

	// One batch at a time; the runner also guards against overlap
	sub.ReceiveSettings.MaxOutstandingMessages = 1

	log.Printf("[PubSub] Listening for messages on subscription: %s", t.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		t.handleMessage(ctx, msg.Data)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

func (t *PubSubTrigger) ensureSubscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := t.client.Subscription(t.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("error checking subscription existence: %v", err)
	}
	if exists {
		return sub, nil
	}

	topic := t.client.Topic(t.topicName)
	topicExists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("error checking topic existence: %v", err)
	}
	if !topicExists {
		return nil, fmt.Errorf("topic %s does not exist, cannot create subscription", t.topicName)
	}

	sub, err = t.client.CreateSubscription(ctx, t.subName, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 60 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %v", err)
	}
	log.Printf("[PubSub] Created subscription: %s", t.subName)
	return sub, nil
}

func (t *PubSubTrigger) handleMessage(ctx context.Context, data []byte) *BatchReport {
	var trigger TriggerMessage
	if len(data) > 0 {
		if err := json.Unmarshal(data, &trigger); err != nil {
			log.Printf("[PubSub] Ignoring unparsable payload: %v", err)
		}
	}
	if trigger.Reason == "" {
		trigger.Reason = "scheduled"
	}
	log.Printf("[PubSub] Reconcile requested (reason: %s)", trigger.Reason)
	return t.runner.RunOnce(ctx)
}

// Close releases the pubsub client
func (t *PubSubTrigger) Close() error {
	return t.client.Close()
}
