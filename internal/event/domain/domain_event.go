// Package domain defines the inbound domain event shapes consumed from upstream
// services. A DomainEvent is ephemeral: it is deserialized from one queue message,
// classified once and discarded.
package domain

import (
	"time"
)

// Identifier types carried in a person reference.
const (
	IdentifierTypeCRN  = "CRN"
	IdentifierTypeNOMS = "NOMS"
)

// PersonIdentifier is one typed identifier inside a person reference.
type PersonIdentifier struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// PersonReference carries the identifiers of the person a domain event concerns.
type PersonReference struct {
	Identifiers []PersonIdentifier `json:"identifiers"`
}

// FindIdentifierValue returns the value of the first identifier with the given
// type, or the empty string when none is present.
func (p PersonReference) FindIdentifierValue(identifierType string) string {
	for _, identifier := range p.Identifiers {
		if identifier.Type == identifierType {
			return identifier.Value
		}
	}
	return ""
}

// AdditionalInformation carries the per-event-type extra fields upstream services
// attach to their events. Every field is optional; the empty value means absent.
type AdditionalInformation struct {
	NomsNumber        string   `json:"nomsNumber,omitempty"`
	PrisonerID        string   `json:"prisonerId,omitempty"`
	PrisonerNumber    string   `json:"prisonerNumber,omitempty"`
	RemovedNomsNumber string   `json:"removedNomsNumber,omitempty"`
	RegisterTypeCode  string   `json:"registerTypeCode,omitempty"`
	AlertCode         string   `json:"alertCode,omitempty"`
	PrisonID          string   `json:"prisonId,omitempty"`
	Key               string   `json:"key,omitempty"`
	Reference         string   `json:"reference,omitempty"`
	ContactPersonID   string   `json:"contactPersonId,omitempty"`
	CategoriesChanged []string `json:"categoriesChanged,omitempty"`
	Reason            string   `json:"reason,omitempty"`
}

// DomainEvent is one inbound event as published by an upstream service.
type DomainEvent struct {
	EventType             string                 `json:"eventType"`
	OccurredAt            time.Time              `json:"occurredAt"`
	PersonReference       PersonReference        `json:"personReference"`
	AdditionalInformation *AdditionalInformation `json:"additionalInformation,omitempty"`
	PrisonID              string                 `json:"prisonId,omitempty"`
	PrisonerID            string                 `json:"prisonerId,omitempty"`
	Reason                string                 `json:"reason,omitempty"`
}

// CRN returns the probation case reference number carried in the person
// reference, or the empty string when absent.
func (e *DomainEvent) CRN() string {
	return e.PersonReference.FindIdentifierValue(IdentifierTypeCRN)
}

// NomsNumber derives the prison number from the event, checking in priority
// order: the NOMS-typed identifier, additionalInformation.nomsNumber,
// additionalInformation.prisonerId, additionalInformation.prisonerNumber and
// finally the top-level prisonerId.
func (e *DomainEvent) NomsNumber() string {
	if value := e.PersonReference.FindIdentifierValue(IdentifierTypeNOMS); value != "" {
		return value
	}
	if info := e.AdditionalInformation; info != nil {
		if info.NomsNumber != "" {
			return info.NomsNumber
		}
		if info.PrisonerID != "" {
			return info.PrisonerID
		}
		if info.PrisonerNumber != "" {
			return info.PrisonerNumber
		}
	}
	return e.PrisonerID
}

// Info returns the event's additional information, never nil, so call sites can
// read optional fields without guarding.
func (e *DomainEvent) Info() *AdditionalInformation {
	if e.AdditionalInformation == nil {
		return &AdditionalInformation{}
	}
	return e.AdditionalInformation
}

// HasCategoryChanged reports whether any of the given categories appears in the
// event's categoriesChanged list.
func (e *DomainEvent) HasCategoryChanged(categories ...string) bool {
	info := e.Info()
	for _, changed := range info.CategoriesChanged {
		for _, category := range categories {
			if changed == category {
				return true
			}
		}
	}
	return false
}
