// Package messaging connects the service to its queues and topics: consuming
// inbound domain events and publishing outbound integration events through
// gocloud.dev/pubsub.
package messaging

import (
	"encoding/json"

	validation "github.com/jellydator/validation"

	eventDomain "github.com/allisson/integration-events/internal/event/domain"
	appvalidation "github.com/allisson/integration-events/internal/validation"
)

// Envelope is the broker envelope wrapping an inbound domain event. The queue
// receives notification-style envelopes whose Message field carries the event
// JSON as a string.
type Envelope struct {
	Type              string                      `json:"Type"`
	Message           string                      `json:"Message"`
	MessageID         string                      `json:"MessageId"`
	MessageAttributes map[string]MessageAttribute `json:"MessageAttributes"`
}

// MessageAttribute is one typed attribute on the broker envelope.
type MessageAttribute struct {
	Type  string `json:"Type"`
	Value string `json:"Value"`
}

// Validate checks the envelope carries a message body.
func (e *Envelope) Validate() error {
	err := validation.ValidateStruct(e,
		validation.Field(&e.Message, validation.Required),
	)
	return appvalidation.WrapValidationError(err)
}

// DecodeDomainEvent parses the inner message into a domain event and checks
// the fields classification depends on.
func (e *Envelope) DecodeDomainEvent() (*eventDomain.DomainEvent, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	var event eventDomain.DomainEvent
	if err := json.Unmarshal([]byte(e.Message), &event); err != nil {
		return nil, appvalidation.WrapValidationError(err)
	}

	err := validation.ValidateStruct(&event,
		validation.Field(&event.EventType, validation.Required),
	)
	if err != nil {
		return nil, appvalidation.WrapValidationError(err)
	}

	if err := validateIdentifiers(&event); err != nil {
		return nil, err
	}

	return &event, nil
}

// validateIdentifiers rejects events whose person identifiers or prison codes
// are malformed. A value that cannot possibly resolve is a data-quality
// failure in the upstream producer, not a lookup worth retrying, so these
// surface as invalid input and the message is dead-lettered. Absent values
// are left alone; classification decides whether they are required.
func validateIdentifiers(event *eventDomain.DomainEvent) error {
	for _, identifier := range event.PersonReference.Identifiers {
		var rule validation.Rule
		switch identifier.Type {
		case eventDomain.IdentifierTypeCRN:
			rule = appvalidation.CRN
		case eventDomain.IdentifierTypeNOMS:
			rule = appvalidation.NomsNumber
		default:
			continue
		}
		if err := validation.Validate(identifier.Value,
			appvalidation.NotBlank, appvalidation.NoWhitespace, rule); err != nil {
			return appvalidation.WrapValidationError(err)
		}
	}

	info := event.Info()
	for _, nomsNumber := range []string{info.NomsNumber, info.RemovedNomsNumber} {
		if nomsNumber == "" {
			continue
		}
		if err := validation.Validate(nomsNumber, appvalidation.NoWhitespace, appvalidation.NomsNumber); err != nil {
			return appvalidation.WrapValidationError(err)
		}
	}

	for _, prisonID := range []string{event.PrisonID, info.PrisonID} {
		if prisonID == "" {
			continue
		}
		if err := validation.Validate(prisonID, appvalidation.PrisonID); err != nil {
			return appvalidation.WrapValidationError(err)
		}
	}

	return nil
}

// ParseEnvelope decodes a raw queue message body into an envelope. Bodies that
// are not envelopes at all are rejected.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, appvalidation.WrapValidationError(err)
	}
	return &envelope, nil
}
