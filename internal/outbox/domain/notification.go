// Package domain defines the outbox entities: the durable notification rows that
// decouple event classification from reliable delivery.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationStatus represents the dispatch state of an outbox row.
type NotificationStatus string

const (
	NotificationStatusPending    NotificationStatus = "PENDING"
	NotificationStatusProcessing NotificationStatus = "PROCESSING"
	NotificationStatusProcessed  NotificationStatus = "PROCESSED"
)

// EventNotification is one outbox row: a normalized notification awaiting
// delivery to the downstream topic. At most one PENDING row exists per
// (url, eventType) pair; bursts of the same logical change coalesce into it by
// bumping LastModifiedDateTime. Once a row moves to PROCESSING a fresh PENDING
// row for the same pair is a distinct in-flight generation.
//
// The JSON form is the published payload; dispatch bookkeeping stays internal.
type EventNotification struct {
	ID        uuid.UUID `json:"-"`
	EventType string    `json:"eventType"`
	HmppsID   *string   `json:"hmppsId,omitempty"`
	PrisonID  *string   `json:"prisonId,omitempty"`
	URL       string    `json:"url"`

	Status               NotificationStatus `json:"-"`
	ClaimID              *string            `json:"-"`
	LastModifiedDateTime time.Time          `json:"-"`
}

// NewEventNotification creates a PENDING notification for the given type and url.
// The optional hmpps and prison ids are stored when non-empty.
func NewEventNotification(eventType, url, hmppsID, prisonID string) *EventNotification {
	notification := &EventNotification{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: eventType,
		URL:       url,
		Status:    NotificationStatusPending,
	}
	if hmppsID != "" {
		notification.HmppsID = &hmppsID
	}
	if prisonID != "" {
		notification.PrisonID = &prisonID
	}
	return notification
}
