package messaging

import (
	"context"
	"encoding/json"

	"gocloud.dev/pubsub"
	"golang.org/x/time/rate"

	apperrors "github.com/allisson/integration-events/internal/errors"
	outboxDomain "github.com/allisson/integration-events/internal/outbox/domain"
)

// TopicPublisher publishes integration event notifications to the outbound
// topic, rate limited to protect the broker during large dispatch rounds.
type TopicPublisher struct {
	topic   *pubsub.Topic
	limiter *rate.Limiter
}

// NewTopicPublisher creates a new TopicPublisher. A nil limiter disables rate
// limiting.
func NewTopicPublisher(topic *pubsub.Topic, limiter *rate.Limiter) *TopicPublisher {
	return &TopicPublisher{
		topic:   topic,
		limiter: limiter,
	}
}

// Publish sends one notification as JSON with the event type attached as
// metadata so subscribers can filter without parsing the body.
func (p *TopicPublisher) Publish(ctx context.Context, notification *outboxDomain.EventNotification) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	body, err := json.Marshal(notification)
	if err != nil {
		return apperrors.Wrap(err, "encoding notification")
	}

	err = p.topic.Send(ctx, &pubsub.Message{
		Body: body,
		Metadata: map[string]string{
			"eventType": notification.EventType,
		},
	})
	if err != nil {
		return apperrors.Wrapf(err, "publishing notification %s", notification.EventType)
	}

	return nil
}
