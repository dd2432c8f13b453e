package messaging

import (
	"context"
	"log/slog"

	"gocloud.dev/pubsub"

	apperrors "github.com/allisson/integration-events/internal/errors"
	eventDomain "github.com/allisson/integration-events/internal/event/domain"
	"github.com/allisson/integration-events/internal/metrics"
)

// EventHandler processes one decoded domain event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *eventDomain.DomainEvent) error
}

// Consumer receives domain events from the inbound queue, decodes them and
// hands them to the event handler. Undecodable messages and events whose
// subject cannot be resolved go to the dead-letter topic; transient failures
// are nacked for redelivery.
type Consumer struct {
	subscription    *pubsub.Subscription
	deadLetter      *pubsub.Topic
	handler         EventHandler
	businessMetrics metrics.BusinessMetrics
	logger          *slog.Logger
}

// NewConsumer creates a new Consumer. The dead-letter topic is optional; when
// nil, poison messages are acked and dropped after logging.
func NewConsumer(
	subscription *pubsub.Subscription,
	deadLetter *pubsub.Topic,
	handler EventHandler,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Consumer {
	return &Consumer{
		subscription:    subscription,
		deadLetter:      deadLetter,
		handler:         handler,
		businessMetrics: businessMetrics,
		logger:          logger,
	}
}

// Run receives messages until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.logger != nil {
		c.logger.Info("starting event consumer")
	}

	for {
		message, err := c.subscription.Receive(ctx)
		if err != nil {
			if c.logger != nil {
				c.logger.Info("stopping event consumer", slog.Any("error", err))
			}
			return err
		}
		c.handleMessage(ctx, message)
	}
}

func (c *Consumer) handleMessage(ctx context.Context, message *pubsub.Message) {
	event, err := c.decode(message.Body)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("rejecting undecodable message", slog.Any("error", err))
		}
		c.recordOperation(ctx, "consume", "invalid")
		c.sendToDeadLetter(ctx, message, err)
		message.Ack()
		return
	}

	if err := c.handler.HandleEvent(ctx, event); err != nil {
		// Unresolvable events are poison: redelivery cannot fix a person that
		// does not exist. Everything else is assumed transient and retried.
		if apperrors.Is(err, apperrors.ErrNotFound) || apperrors.Is(err, apperrors.ErrInvalidInput) {
			if c.logger != nil {
				c.logger.Error("rejecting unprocessable event",
					slog.String("event_type", event.EventType),
					slog.Any("error", err),
				)
			}
			c.recordOperation(ctx, "consume", "dead_letter")
			c.sendToDeadLetter(ctx, message, err)
			message.Ack()
			return
		}

		if c.logger != nil {
			c.logger.Error("event handling failed, message will be redelivered",
				slog.String("event_type", event.EventType),
				slog.Any("error", err),
			)
		}
		c.recordOperation(ctx, "consume", "error")
		if message.Nackable() {
			message.Nack()
		} else {
			message.Ack()
		}
		return
	}

	c.recordOperation(ctx, "consume", "success")
	message.Ack()
}

func (c *Consumer) decode(body []byte) (*eventDomain.DomainEvent, error) {
	envelope, err := ParseEnvelope(body)
	if err != nil {
		return nil, err
	}
	return envelope.DecodeDomainEvent()
}

// sendToDeadLetter forwards the original message body with the failure reason
// attached as metadata.
func (c *Consumer) sendToDeadLetter(ctx context.Context, message *pubsub.Message, cause error) {
	if c.deadLetter == nil {
		return
	}

	err := c.deadLetter.Send(ctx, &pubsub.Message{
		Body: message.Body,
		Metadata: map[string]string{
			"error": cause.Error(),
		},
	})
	if err != nil && c.logger != nil {
		c.logger.Error("failed to send message to dead-letter topic", slog.Any("error", err))
	}
}

func (c *Consumer) recordOperation(ctx context.Context, operation, status string) {
	if c.businessMetrics != nil {
		c.businessMetrics.RecordOperation(ctx, "messaging", operation, status)
	}
}
