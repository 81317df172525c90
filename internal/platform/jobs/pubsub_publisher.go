package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/hanko-field/promoclock/internal/services"
)

// PubSubCountdownEventPublisher publishes countdown edge events to a topic.
// Messages for one promotion share an ordering key so consumers see start,
// urgent, critical and expire in order when the topic enables ordering.
type PubSubCountdownEventPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubCountdownEventPublisher wraps topic.
func NewPubSubCountdownEventPublisher(topic *pubsub.Topic) (*PubSubCountdownEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub countdown publisher: topic is required")
	}
	return &PubSubCountdownEventPublisher{topic: topic, marshal: json.Marshal}, nil
}

var _ services.CountdownEventPublisher = (*PubSubCountdownEventPublisher)(nil)

// PublishCountdownEvent sends message and waits for the server id.
func (p *PubSubCountdownEventPublisher) PublishCountdownEvent(ctx context.Context, message services.CountdownEventMessage) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub countdown publisher: not initialised")
	}
	data, err := p.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal countdown event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "eventId", message.EventID)
	setAttr(attrs, "watchId", message.WatchID)
	setAttr(attrs, "promotionCode", message.PromotionCode)
	setAttr(attrs, "edge", message.Edge)
	setAttr(attrs, "state", message.State)
	setAttr(attrs, "dedupeKey", message.DedupeKey())

	msg := &pubsub.Message{Data: data, Attributes: attrs}
	if p.topic.EnableMessageOrdering {
		msg.OrderingKey = message.PromotionCode
	}
	id, err := p.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		if msg.OrderingKey != "" {
			p.topic.ResumePublish(msg.OrderingKey)
		}
		return "", fmt.Errorf("publish countdown event: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
