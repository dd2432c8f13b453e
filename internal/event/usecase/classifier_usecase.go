// Package usecase implements domain event classification: deciding which
// integration event types an inbound event produces and persisting the resulting
// notifications to the outbox.
package usecase

import (
	"context"
	"log/slog"

	"github.com/allisson/integration-events/internal/database"
	apperrors "github.com/allisson/integration-events/internal/errors"
	eventDomain "github.com/allisson/integration-events/internal/event/domain"
	"github.com/allisson/integration-events/internal/event/registry"
	"github.com/allisson/integration-events/internal/metrics"
	outboxDomain "github.com/allisson/integration-events/internal/outbox/domain"
)

// FlagLookup provides feature flag values. Lookup returns the configured value
// and whether the flag name is present in configuration at all; the distinction
// matters because a referenced-but-missing flag is operator misconfiguration,
// not an intentional disable.
type FlagLookup interface {
	Lookup(name string) (value bool, present bool)
}

// NotificationStore persists classification results with insert-or-coalesce
// semantics per (url, eventType, PENDING).
type NotificationStore interface {
	Upsert(ctx context.Context, notification *outboxDomain.EventNotification) error
}

// IdentityResolver resolves the subject and prison identifiers for an event.
type IdentityResolver interface {
	ResolveSubjectID(ctx context.Context, event *eventDomain.DomainEvent) (string, error)
	ResolvePrisonID(ctx context.Context, event *eventDomain.DomainEvent) (string, error)
}

// ClassifierUseCase classifies inbound domain events and writes the resulting
// notifications to the outbox.
type ClassifierUseCase struct {
	resolver        IdentityResolver
	store           NotificationStore
	txManager       database.TxManager
	flags           FlagLookup
	businessMetrics metrics.BusinessMetrics
	logger          *slog.Logger
}

// NewClassifierUseCase creates a new ClassifierUseCase.
func NewClassifierUseCase(
	resolver IdentityResolver,
	store NotificationStore,
	txManager database.TxManager,
	flags FlagLookup,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *ClassifierUseCase {
	return &ClassifierUseCase{
		resolver:        resolver,
		store:           store,
		txManager:       txManager,
		flags:           flags,
		businessMetrics: businessMetrics,
		logger:          logger,
	}
}

// Classify evaluates every registry rule against the event and produces the
// notifications of all surviving matches.
//
// A subject-id resolution failure aborts the whole call; the caller should
// route the inbound message to the dead-letter path. A per-match failure
// (unmappable url, merge event without a removed number) is logged and skips
// that match only, leaving sibling matches unaffected.
func (uc *ClassifierUseCase) Classify(
	ctx context.Context,
	event *eventDomain.DomainEvent,
) ([]*outboxDomain.EventNotification, error) {
	matches := uc.matchRules(event)
	if len(matches) == 0 {
		return nil, nil
	}

	// Resolved once and shared across all surviving matches.
	subjectID, err := uc.resolver.ResolveSubjectID(ctx, event)
	if err != nil {
		return nil, err
	}

	var notifications []*outboxDomain.EventNotification
	for _, def := range matches {
		created, err := uc.createNotifications(ctx, event, def, subjectID)
		if err != nil {
			switch {
			case apperrors.Is(err, apperrors.ErrUnmappableURL):
				if uc.logger != nil {
					uc.logger.Warn("skipping event type with unmappable url",
						slog.String("event_type", def.Name),
						slog.String("domain_event_type", event.EventType),
						slog.Any("error", err),
					)
				}
			case apperrors.Is(err, apperrors.ErrIllegalState):
				if uc.logger != nil {
					uc.logger.Error("skipping event type with inconsistent event data",
						slog.String("event_type", def.Name),
						slog.String("domain_event_type", event.EventType),
						slog.Any("error", err),
					)
				}
			default:
				return nil, err
			}
			continue
		}
		notifications = append(notifications, created...)
	}

	return notifications, nil
}

// HandleEvent classifies the event and upserts every resulting notification
// into the outbox within one transaction.
func (uc *ClassifierUseCase) HandleEvent(ctx context.Context, event *eventDomain.DomainEvent) error {
	notifications, err := uc.Classify(ctx, event)
	if err != nil {
		uc.recordOperation(ctx, "classify", "error")
		return err
	}

	if len(notifications) == 0 {
		uc.recordOperation(ctx, "classify", "no_match")
		return nil
	}

	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		for _, notification := range notifications {
			if err := uc.store.Upsert(ctx, notification); err != nil {
				return apperrors.Wrapf(err, "upserting notification %s %s",
					notification.EventType, notification.URL)
			}
		}
		return nil
	})
	if err != nil {
		uc.recordOperation(ctx, "persist", "error")
		return err
	}

	uc.recordOperation(ctx, "classify", "success")
	return nil
}

// matchRules collects every registry definition whose predicate accepts the
// event, applying the feature flag gate.
func (uc *ClassifierUseCase) matchRules(event *eventDomain.DomainEvent) []registry.EventTypeDef {
	var matches []registry.EventTypeDef
	for _, def := range registry.All() {
		if !def.Predicate(event) {
			continue
		}

		if def.FeatureFlag != "" {
			enabled, present := uc.flags.Lookup(def.FeatureFlag)
			if !present {
				// An associated-but-missing flag must alarm, not silently default:
				// it indicates operator misconfiguration rather than an intentional
				// disable.
				if uc.logger != nil {
					uc.logger.Error("feature flag referenced by event type is not configured",
						slog.String("feature_flag", def.FeatureFlag),
						slog.String("event_type", def.Name),
					)
				}
				continue
			}
			if !enabled {
				continue
			}
		}

		matches = append(matches, def)
	}
	return matches
}

// creationStrategy produces the notifications for one matched rule.
type creationStrategy func(
	uc *ClassifierUseCase,
	ctx context.Context,
	event *eventDomain.DomainEvent,
	def registry.EventTypeDef,
	subjectID string,
) ([]*outboxDomain.EventNotification, error)

// creationStrategies maps event type names to non-default creation behavior.
// Only merge events fan out; every type absent here uses the default
// single-notification strategy.
var creationStrategies = map[string]creationStrategy{
	registry.PrisonerMerged: (*ClassifierUseCase).createMergeNotifications,
}

// createNotifications applies the creation strategy selected for the event.
func (uc *ClassifierUseCase) createNotifications(
	ctx context.Context,
	event *eventDomain.DomainEvent,
	def registry.EventTypeDef,
	subjectID string,
) ([]*outboxDomain.EventNotification, error) {
	if strategy, ok := creationStrategies[event.EventType]; ok {
		return strategy(uc, ctx, event, def, subjectID)
	}
	return uc.createDefaultNotification(ctx, event, def, subjectID)
}

// createDefaultNotification produces one notification addressed to the resolved
// subject.
func (uc *ClassifierUseCase) createDefaultNotification(
	ctx context.Context,
	event *eventDomain.DomainEvent,
	def registry.EventTypeDef,
	subjectID string,
) ([]*outboxDomain.EventNotification, error) {
	prisonID, err := uc.resolver.ResolvePrisonID(ctx, event)
	if err != nil {
		return nil, err
	}

	url, err := registry.Render(def, subjectID, prisonID, event.AdditionalInformation)
	if err != nil {
		return nil, err
	}

	return []*outboxDomain.EventNotification{
		outboxDomain.NewEventNotification(def.Name, url, subjectID, prisonID),
	}, nil
}

// createMergeNotifications produces exactly two notifications for a prisoner
// merge: one addressed to the removed prisoner number and one to the resolved
// current subject id, both carrying the resolved prison id. A merge event
// without a removed number is a data-quality error.
func (uc *ClassifierUseCase) createMergeNotifications(
	ctx context.Context,
	event *eventDomain.DomainEvent,
	def registry.EventTypeDef,
	subjectID string,
) ([]*outboxDomain.EventNotification, error) {
	removedNomsNumber := event.Info().RemovedNomsNumber
	if removedNomsNumber == "" {
		return nil, apperrors.Wrapf(
			apperrors.ErrIllegalState,
			"merge event for %s has no removed prisoner number",
			subjectID,
		)
	}

	prisonID, err := uc.resolver.ResolvePrisonID(ctx, event)
	if err != nil {
		return nil, err
	}

	removedURL, err := registry.Render(def, removedNomsNumber, prisonID, event.AdditionalInformation)
	if err != nil {
		return nil, err
	}

	currentURL, err := registry.Render(def, subjectID, prisonID, event.AdditionalInformation)
	if err != nil {
		return nil, err
	}

	return []*outboxDomain.EventNotification{
		outboxDomain.NewEventNotification(def.Name, removedURL, removedNomsNumber, prisonID),
		outboxDomain.NewEventNotification(def.Name, currentURL, subjectID, prisonID),
	}, nil
}

func (uc *ClassifierUseCase) recordOperation(ctx context.Context, operation, status string) {
	if uc.businessMetrics != nil {
		uc.businessMetrics.RecordOperation(ctx, "events", operation, status)
	}
}
