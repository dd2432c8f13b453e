package messaging

import (
	"context"

	"gocloud.dev/pubsub"

	apperrors "github.com/allisson/integration-events/internal/errors"

	// Register pubsub drivers
	_ "gocloud.dev/pubsub/awssnssqs"
	_ "gocloud.dev/pubsub/gcppubsub"
	_ "gocloud.dev/pubsub/mempubsub"
)

// OpenSubscription opens a pubsub subscription for the given URL.
// Supports: awssqs://, gcppubsub://, mem://
func OpenSubscription(ctx context.Context, url string) (*pubsub.Subscription, error) {
	subscription, err := pubsub.OpenSubscription(ctx, url)
	if err != nil {
		return nil, apperrors.Wrapf(err, "opening subscription %s", url)
	}
	return subscription, nil
}

// OpenTopic opens a pubsub topic for the given URL.
// Supports: awssns://, gcppubsub://, mem://
func OpenTopic(ctx context.Context, url string) (*pubsub.Topic, error) {
	topic, err := pubsub.OpenTopic(ctx, url)
	if err != nil {
		return nil, apperrors.Wrapf(err, "opening topic %s", url)
	}
	return topic, nil
}
