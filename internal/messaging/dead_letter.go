package messaging

import (
	"context"
	"encoding/json"

	"gocloud.dev/pubsub"

	apperrors "github.com/allisson/integration-events/internal/errors"
	outboxDomain "github.com/allisson/integration-events/internal/outbox/domain"
)

// NotificationDeadLetter forwards notifications whose publish failed to the
// dead-letter topic, carrying the failure text as metadata.
type NotificationDeadLetter struct {
	topic *pubsub.Topic
}

// NewNotificationDeadLetter creates a new NotificationDeadLetter.
func NewNotificationDeadLetter(topic *pubsub.Topic) *NotificationDeadLetter {
	return &NotificationDeadLetter{topic: topic}
}

// SendFailed publishes the notification JSON with the cause attached.
func (d *NotificationDeadLetter) SendFailed(
	ctx context.Context,
	notification *outboxDomain.EventNotification,
	cause error,
) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return apperrors.Wrap(err, "encoding notification")
	}

	err = d.topic.Send(ctx, &pubsub.Message{
		Body: body,
		Metadata: map[string]string{
			"eventType": notification.EventType,
			"error":     cause.Error(),
		},
	})
	if err != nil {
		return apperrors.Wrapf(err, "dead-lettering notification %s", notification.EventType)
	}

	return nil
}
