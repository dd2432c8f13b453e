// Package usecase implements subject and prison identity resolution for inbound
// domain events. The subject id is the stable cross-system handle returned to
// downstream consumers in place of raw case or offender numbers: a probation
// case reference when known, else a prison number.
package usecase

import (
	"context"
	"log/slog"
	"regexp"

	apperrors "github.com/allisson/integration-events/internal/errors"
	eventDomain "github.com/allisson/integration-events/internal/event/domain"
)

// locationKeyPrefixPattern extracts the leading uppercase prison code from a
// location key of the form PRISONCODE-wing-cell. The run must be followed by a
// dash or the end of the key.
var locationKeyPrefixPattern = regexp.MustCompile(`^([A-Z]*)(?:-|$)`)

// PersonExistsClient reports whether a probation case reference is known.
type PersonExistsClient interface {
	PersonExists(ctx context.Context, subjectID string) (bool, error)
}

// IdentifierLookupClient maps a prison number to a richer subject id. Returns
// the empty string for the ordinary "unknown" case.
type IdentifierLookupClient interface {
	LookupSubjectID(ctx context.Context, nomsNumber string) (string, error)
}

// PrisonerLookupClient returns the current prison id for a prison number.
// Returns the empty string for the ordinary "unknown" case.
type PrisonerLookupClient interface {
	LookupPrisonID(ctx context.Context, nomsNumber string) (string, error)
}

// Resolver resolves subject and prison identifiers for domain events.
type Resolver struct {
	personClient     PersonExistsClient
	identifierClient IdentifierLookupClient
	prisonerClient   PrisonerLookupClient
	logger           *slog.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(
	personClient PersonExistsClient,
	identifierClient IdentifierLookupClient,
	prisonerClient PrisonerLookupClient,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		personClient:     personClient,
		identifierClient: identifierClient,
		prisonerClient:   prisonerClient,
		logger:           logger,
	}
}

// ResolveSubjectID resolves the stable subject id for the event's person.
//
// When the person reference carries a probation case reference, the person index
// must confirm it exists; an unknown reference fails with ErrNotFound, which is
// fatal for the whole inbound event. Without a case reference the prison number
// is derived and mapped through the identifier lookup, falling back to the
// number itself when no richer identity is known. Returns the empty string when
// neither identifier kind is present.
func (r *Resolver) ResolveSubjectID(ctx context.Context, event *eventDomain.DomainEvent) (string, error) {
	if crn := event.CRN(); crn != "" {
		exists, err := r.personClient.PersonExists(ctx, crn)
		if err != nil {
			return "", apperrors.Wrapf(err, "checking person %s exists", crn)
		}
		if !exists {
			return "", apperrors.Wrapf(apperrors.ErrNotFound, "person with crn %s", crn)
		}
		return crn, nil
	}

	nomsNumber := event.NomsNumber()
	if nomsNumber == "" {
		return "", nil
	}

	subjectID, err := r.identifierClient.LookupSubjectID(ctx, nomsNumber)
	if err != nil {
		return "", apperrors.Wrapf(err, "looking up subject id for %s", nomsNumber)
	}
	if subjectID != "" {
		return subjectID, nil
	}

	// The prison number doubles as the subject id when nothing richer is known.
	return nomsNumber, nil
}

// ResolvePrisonID resolves the prison the event concerns, preferring the ids
// carried on the event itself, then the prisoner lookup by prison number, then
// the prefix of a location key. Returns the empty string when none applies;
// that is not an error here.
func (r *Resolver) ResolvePrisonID(ctx context.Context, event *eventDomain.DomainEvent) (string, error) {
	if event.PrisonID != "" {
		return event.PrisonID, nil
	}

	info := event.Info()
	if info.PrisonID != "" {
		return info.PrisonID, nil
	}

	if nomsNumber := event.NomsNumber(); nomsNumber != "" {
		prisonID, err := r.prisonerClient.LookupPrisonID(ctx, nomsNumber)
		if err != nil {
			return "", apperrors.Wrapf(err, "looking up prison for %s", nomsNumber)
		}
		if prisonID != "" {
			return prisonID, nil
		}
	}

	if info.Key != "" {
		if match := locationKeyPrefixPattern.FindStringSubmatch(info.Key); match != nil && match[1] != "" {
			return match[1], nil
		}
		if r.logger != nil {
			r.logger.Debug("location key has no prison code prefix", slog.String("key", info.Key))
		}
	}

	return "", nil
}
