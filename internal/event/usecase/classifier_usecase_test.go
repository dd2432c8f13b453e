package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/integration-events/internal/errors"
	eventDomain "github.com/allisson/integration-events/internal/event/domain"
	"github.com/allisson/integration-events/internal/event/registry"
	outboxDomain "github.com/allisson/integration-events/internal/outbox/domain"
)

// MockIdentityResolver is a mock implementation of IdentityResolver
type MockIdentityResolver struct {
	mock.Mock
}

func (m *MockIdentityResolver) ResolveSubjectID(ctx context.Context, event *eventDomain.DomainEvent) (string, error) {
	args := m.Called(ctx, event)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityResolver) ResolvePrisonID(ctx context.Context, event *eventDomain.DomainEvent) (string, error) {
	args := m.Called(ctx, event)
	return args.String(0), args.Error(1)
}

// MockNotificationStore is a mock implementation of NotificationStore
type MockNotificationStore struct {
	mock.Mock
}

func (m *MockNotificationStore) Upsert(ctx context.Context, notification *outboxDomain.EventNotification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

// MockTxManager is a mock implementation of database.TxManager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Get(0) != nil {
		return args.Error(0)
	}
	// Execute the function to test the logic inside
	return fn(ctx)
}

// staticFlags is a FlagLookup over a fixed map.
type staticFlags map[string]bool

func (f staticFlags) Lookup(name string) (bool, bool) {
	value, present := f[name]
	return value, present
}

func newClassifier(flags staticFlags) (*ClassifierUseCase, *MockIdentityResolver, *MockNotificationStore, *MockTxManager) {
	resolver := &MockIdentityResolver{}
	store := &MockNotificationStore{}
	txManager := &MockTxManager{}
	uc := NewClassifierUseCase(resolver, store, txManager, flags, nil, nil)
	return uc, resolver, store, txManager
}

func mappaEvent() *eventDomain.DomainEvent {
	return &eventDomain.DomainEvent{
		EventType: "probation-case.registration.added",
		PersonReference: eventDomain.PersonReference{
			Identifiers: []eventDomain.PersonIdentifier{
				{Type: eventDomain.IdentifierTypeCRN, Value: "X123456"},
			},
		},
		AdditionalInformation: &eventDomain.AdditionalInformation{RegisterTypeCode: "MAPP"},
	}
}

func TestClassifierUseCase_Classify_MappaRegistration(t *testing.T) {
	uc, resolver, _, _ := newClassifier(nil)
	resolver.On("ResolveSubjectID", mock.Anything, mock.Anything).Return("X123456", nil)
	resolver.On("ResolvePrisonID", mock.Anything, mock.Anything).Return("", nil)

	notifications, err := uc.Classify(context.Background(), mappaEvent())
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, registry.MappaDetailChanged, notifications[0].EventType)
	assert.Equal(t, "/v1/persons/X123456/risks/mappadetail", notifications[0].URL)
	assert.Equal(t, "X123456", *notifications[0].HmppsID)
	assert.Equal(t, outboxDomain.NotificationStatusPending, notifications[0].Status)
}

func TestClassifierUseCase_Classify_NoMatches(t *testing.T) {
	uc, resolver, _, _ := newClassifier(nil)

	event := &eventDomain.DomainEvent{EventType: "some.unknown.event"}

	notifications, err := uc.Classify(context.Background(), event)
	require.NoError(t, err)
	assert.Empty(t, notifications)
	resolver.AssertNotCalled(t, "ResolveSubjectID")
}

func TestClassifierUseCase_Classify_SubjectResolutionFailureIsFatal(t *testing.T) {
	uc, resolver, _, _ := newClassifier(nil)
	resolver.On("ResolveSubjectID", mock.Anything, mock.Anything).
		Return("", apperrors.Wrap(apperrors.ErrNotFound, "person with crn X123456"))

	_, err := uc.Classify(context.Background(), mappaEvent())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestClassifierUseCase_Classify_MergeEventProducesTwoNotifications(t *testing.T) {
	uc, resolver, _, _ := newClassifier(nil)
	resolver.On("ResolveSubjectID", mock.Anything, mock.Anything).Return("AA0002A", nil)
	resolver.On("ResolvePrisonID", mock.Anything, mock.Anything).Return("MDI", nil)

	event := &eventDomain.DomainEvent{
		EventType: registry.PrisonerMerged,
		PersonReference: eventDomain.PersonReference{
			Identifiers: []eventDomain.PersonIdentifier{
				{Type: eventDomain.IdentifierTypeNOMS, Value: "AA0002A"},
			},
		},
		AdditionalInformation: &eventDomain.AdditionalInformation{RemovedNomsNumber: "AA0001A"},
	}

	notifications, err := uc.Classify(context.Background(), event)
	require.NoError(t, err)

	var statusChanged []*outboxDomain.EventNotification
	for _, notification := range notifications {
		if notification.EventType == registry.PersonStatusChanged {
			statusChanged = append(statusChanged, notification)
		}
	}

	require.Len(t, statusChanged, 2)
	assert.Equal(t, "AA0001A", *statusChanged[0].HmppsID)
	assert.Equal(t, "/v1/persons/AA0001A", statusChanged[0].URL)
	assert.Equal(t, "AA0002A", *statusChanged[1].HmppsID)
	assert.Equal(t, "/v1/persons/AA0002A", statusChanged[1].URL)
	assert.Equal(t, "MDI", *statusChanged[0].PrisonID)
	assert.Equal(t, "MDI", *statusChanged[1].PrisonID)
}

func TestClassifierUseCase_Classify_MergeEventWithoutRemovedNumberSkipsMatch(t *testing.T) {
	uc, resolver, _, _ := newClassifier(nil)
	resolver.On("ResolveSubjectID", mock.Anything, mock.Anything).Return("AA0002A", nil)

	event := &eventDomain.DomainEvent{
		EventType: registry.PrisonerMerged,
		PersonReference: eventDomain.PersonReference{
			Identifiers: []eventDomain.PersonIdentifier{
				{Type: eventDomain.IdentifierTypeNOMS, Value: "AA0002A"},
			},
		},
	}

	notifications, err := uc.Classify(context.Background(), event)
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestClassifierUseCase_Classify_MergeStrategyFailsWithIllegalState(t *testing.T) {
	uc, resolver, _, _ := newClassifier(nil)

	def, ok := registry.Lookup(registry.PersonStatusChanged)
	require.True(t, ok)

	event := &eventDomain.DomainEvent{EventType: registry.PrisonerMerged}
	_ = resolver

	_, err := uc.createMergeNotifications(context.Background(), event, def, "AA0002A")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrIllegalState))
}

func TestClassifierUseCase_Classify_UnmappableURLSkipsOnlyThatMatch(t *testing.T) {
	uc, resolver, _, _ := newClassifier(nil)
	resolver.On("ResolveSubjectID", mock.Anything, mock.Anything).Return("A1234BC", nil)
	// No prison id resolvable: prison-scoped types fail rendering, person-scoped
	// types still produce notifications.
	resolver.On("ResolvePrisonID", mock.Anything, mock.Anything).Return("", nil)

	event := &eventDomain.DomainEvent{
		EventType: "prison-visit.booked",
		PersonReference: eventDomain.PersonReference{
			Identifiers: []eventDomain.PersonIdentifier{
				{Type: eventDomain.IdentifierTypeNOMS, Value: "A1234BC"},
			},
		},
		AdditionalInformation: &eventDomain.AdditionalInformation{Reference: "ab-cd-ef-gh"},
	}

	notifications, err := uc.Classify(context.Background(), event)
	require.NoError(t, err)

	types := map[string]bool{}
	for _, notification := range notifications {
		types[notification.EventType] = true
	}

	assert.True(t, types[registry.PersonFutureVisitsChanged])
	assert.True(t, types[registry.VisitChanged])
	assert.False(t, types[registry.PrisonVisitsChanged], "prison-scoped type must be skipped without a prison id")
}

func TestClassifierUseCase_Classify_FeatureFlagFiltering(t *testing.T) {
	event := &eventDomain.DomainEvent{
		EventType: "plp.induction-schedule.updated",
		PersonReference: eventDomain.PersonReference{
			Identifiers: []eventDomain.PersonIdentifier{
				{Type: eventDomain.IdentifierTypeNOMS, Value: "A1234BC"},
			},
		},
	}

	t.Run("flag enabled", func(t *testing.T) {
		uc, resolver, _, _ := newClassifier(staticFlags{registry.FlagPLPScheduleEvents: true})
		resolver.On("ResolveSubjectID", mock.Anything, mock.Anything).Return("A1234BC", nil)
		resolver.On("ResolvePrisonID", mock.Anything, mock.Anything).Return("MDI", nil)

		notifications, err := uc.Classify(context.Background(), event)
		require.NoError(t, err)
		require.Len(t, notifications, 1)
		assert.Equal(t, registry.PLPInductionScheduleChanged, notifications[0].EventType)
	})

	t.Run("flag explicitly false", func(t *testing.T) {
		uc, resolver, _, _ := newClassifier(staticFlags{registry.FlagPLPScheduleEvents: false})

		notifications, err := uc.Classify(context.Background(), event)
		require.NoError(t, err)
		assert.Empty(t, notifications)
		resolver.AssertNotCalled(t, "ResolveSubjectID")
	})

	t.Run("flag not configured at all", func(t *testing.T) {
		uc, resolver, _, _ := newClassifier(staticFlags{})

		notifications, err := uc.Classify(context.Background(), event)
		require.NoError(t, err)
		assert.Empty(t, notifications)
		resolver.AssertNotCalled(t, "ResolveSubjectID")
	})
}

func TestClassifierUseCase_HandleEvent_UpsertsAllNotifications(t *testing.T) {
	uc, resolver, store, txManager := newClassifier(nil)
	resolver.On("ResolveSubjectID", mock.Anything, mock.Anything).Return("X123456", nil)
	resolver.On("ResolvePrisonID", mock.Anything, mock.Anything).Return("", nil)
	txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
	store.On("Upsert", mock.Anything, mock.MatchedBy(func(n *outboxDomain.EventNotification) bool {
		return n.EventType == registry.MappaDetailChanged &&
			n.URL == "/v1/persons/X123456/risks/mappadetail"
	})).Return(nil)

	err := uc.HandleEvent(context.Background(), mappaEvent())
	require.NoError(t, err)
	store.AssertNumberOfCalls(t, "Upsert", 1)
}

func TestClassifierUseCase_HandleEvent_NoMatchesIsNotAnError(t *testing.T) {
	uc, _, store, txManager := newClassifier(nil)

	err := uc.HandleEvent(context.Background(), &eventDomain.DomainEvent{EventType: "some.unknown.event"})
	require.NoError(t, err)
	store.AssertNotCalled(t, "Upsert")
	txManager.AssertNotCalled(t, "WithTx")
}

func TestClassifierUseCase_HandleEvent_Idempotence(t *testing.T) {
	// Classifying the same event twice must upsert the same (url, eventType)
	// pairs; the store coalesces them into one PENDING row each.
	uc, resolver, store, txManager := newClassifier(nil)
	resolver.On("ResolveSubjectID", mock.Anything, mock.Anything).Return("X123456", nil)
	resolver.On("ResolvePrisonID", mock.Anything, mock.Anything).Return("", nil)
	txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)

	seen := map[string]int{}
	store.On("Upsert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		notification := args.Get(1).(*outboxDomain.EventNotification)
		seen[notification.URL+"|"+notification.EventType]++
	}).Return(nil)

	require.NoError(t, uc.HandleEvent(context.Background(), mappaEvent()))
	require.NoError(t, uc.HandleEvent(context.Background(), mappaEvent()))

	require.Len(t, seen, 1)
	assert.Equal(t, 2, seen["/v1/persons/X123456/risks/mappadetail|"+registry.MappaDetailChanged])
}
