package service

import (
	"context"
	"log/slog"
	"strings"
)

// LogSubscriptionAdmin records filter policy changes without touching a real
// broker subscription. It stands in when no broker admin credentials are
// configured, keeping sync effective for the stored policies.
type LogSubscriptionAdmin struct {
	logger *slog.Logger
}

// NewLogSubscriptionAdmin creates a new LogSubscriptionAdmin.
func NewLogSubscriptionAdmin(logger *slog.Logger) *LogSubscriptionAdmin {
	return &LogSubscriptionAdmin{logger: logger}
}

// SetFilterPolicy logs the new filter policy for the client's subscription.
func (a *LogSubscriptionAdmin) SetFilterPolicy(_ context.Context, clientID string, eventTypes []string) error {
	if a.logger != nil {
		a.logger.Info("subscription filter policy changed",
			slog.String("client_id", clientID),
			slog.String("event_types", strings.Join(eventTypes, ",")),
		)
	}
	return nil
}
