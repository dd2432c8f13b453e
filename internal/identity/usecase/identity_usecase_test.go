package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/integration-events/internal/errors"
	eventDomain "github.com/allisson/integration-events/internal/event/domain"
)

// MockPersonExistsClient is a mock implementation of PersonExistsClient
type MockPersonExistsClient struct {
	mock.Mock
}

func (m *MockPersonExistsClient) PersonExists(ctx context.Context, subjectID string) (bool, error) {
	args := m.Called(ctx, subjectID)
	return args.Bool(0), args.Error(1)
}

// MockIdentifierLookupClient is a mock implementation of IdentifierLookupClient
type MockIdentifierLookupClient struct {
	mock.Mock
}

func (m *MockIdentifierLookupClient) LookupSubjectID(ctx context.Context, nomsNumber string) (string, error) {
	args := m.Called(ctx, nomsNumber)
	return args.String(0), args.Error(1)
}

// MockPrisonerLookupClient is a mock implementation of PrisonerLookupClient
type MockPrisonerLookupClient struct {
	mock.Mock
}

func (m *MockPrisonerLookupClient) LookupPrisonID(ctx context.Context, nomsNumber string) (string, error) {
	args := m.Called(ctx, nomsNumber)
	return args.String(0), args.Error(1)
}

func newResolver() (*Resolver, *MockPersonExistsClient, *MockIdentifierLookupClient, *MockPrisonerLookupClient) {
	personClient := &MockPersonExistsClient{}
	identifierClient := &MockIdentifierLookupClient{}
	prisonerClient := &MockPrisonerLookupClient{}
	resolver := NewResolver(personClient, identifierClient, prisonerClient, nil)
	return resolver, personClient, identifierClient, prisonerClient
}

func eventWithCRN(crn string) *eventDomain.DomainEvent {
	return &eventDomain.DomainEvent{
		PersonReference: eventDomain.PersonReference{
			Identifiers: []eventDomain.PersonIdentifier{
				{Type: eventDomain.IdentifierTypeCRN, Value: crn},
			},
		},
	}
}

func TestResolver_ResolveSubjectID_CRNExists(t *testing.T) {
	resolver, personClient, _, _ := newResolver()
	personClient.On("PersonExists", mock.Anything, "X123456").Return(true, nil)

	subjectID, err := resolver.ResolveSubjectID(context.Background(), eventWithCRN("X123456"))
	require.NoError(t, err)
	assert.Equal(t, "X123456", subjectID)
	personClient.AssertExpectations(t)
}

func TestResolver_ResolveSubjectID_CRNNotFound(t *testing.T) {
	resolver, personClient, _, _ := newResolver()
	personClient.On("PersonExists", mock.Anything, "X123456").Return(false, nil)

	_, err := resolver.ResolveSubjectID(context.Background(), eventWithCRN("X123456"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestResolver_ResolveSubjectID_PersonLookupError(t *testing.T) {
	resolver, personClient, _, _ := newResolver()
	personClient.On("PersonExists", mock.Anything, "X123456").
		Return(false, errors.New("connection refused"))

	_, err := resolver.ResolveSubjectID(context.Background(), eventWithCRN("X123456"))
	require.Error(t, err)
	assert.False(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestResolver_ResolveSubjectID_NomsNumberMapped(t *testing.T) {
	resolver, _, identifierClient, _ := newResolver()
	identifierClient.On("LookupSubjectID", mock.Anything, "A1234BC").Return("X123456", nil)

	event := &eventDomain.DomainEvent{
		PersonReference: eventDomain.PersonReference{
			Identifiers: []eventDomain.PersonIdentifier{
				{Type: eventDomain.IdentifierTypeNOMS, Value: "A1234BC"},
			},
		},
	}

	subjectID, err := resolver.ResolveSubjectID(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "X123456", subjectID)
}

func TestResolver_ResolveSubjectID_NomsNumberFallback(t *testing.T) {
	resolver, _, identifierClient, _ := newResolver()
	identifierClient.On("LookupSubjectID", mock.Anything, "A1234BC").Return("", nil)

	event := &eventDomain.DomainEvent{
		AdditionalInformation: &eventDomain.AdditionalInformation{NomsNumber: "A1234BC"},
	}

	subjectID, err := resolver.ResolveSubjectID(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "A1234BC", subjectID)
}

func TestResolver_ResolveSubjectID_NoIdentifiers(t *testing.T) {
	resolver, _, _, _ := newResolver()

	subjectID, err := resolver.ResolveSubjectID(context.Background(), &eventDomain.DomainEvent{})
	require.NoError(t, err)
	assert.Equal(t, "", subjectID)
}

func TestResolver_ResolvePrisonID_TopLevelWins(t *testing.T) {
	resolver, _, _, _ := newResolver()

	event := &eventDomain.DomainEvent{
		PrisonID:              "MDI",
		AdditionalInformation: &eventDomain.AdditionalInformation{PrisonID: "LEI"},
	}

	prisonID, err := resolver.ResolvePrisonID(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "MDI", prisonID)
}

func TestResolver_ResolvePrisonID_AdditionalInformation(t *testing.T) {
	resolver, _, _, _ := newResolver()

	event := &eventDomain.DomainEvent{
		AdditionalInformation: &eventDomain.AdditionalInformation{PrisonID: "LEI"},
	}

	prisonID, err := resolver.ResolvePrisonID(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "LEI", prisonID)
}

func TestResolver_ResolvePrisonID_PrisonerLookup(t *testing.T) {
	resolver, _, _, prisonerClient := newResolver()
	prisonerClient.On("LookupPrisonID", mock.Anything, "A1234BC").Return("MDI", nil)

	event := &eventDomain.DomainEvent{
		AdditionalInformation: &eventDomain.AdditionalInformation{NomsNumber: "A1234BC"},
	}

	prisonID, err := resolver.ResolvePrisonID(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "MDI", prisonID)
}

func TestResolver_ResolvePrisonID_LocationKeyPrefix(t *testing.T) {
	resolver, _, _, _ := newResolver()

	tests := []struct {
		key  string
		want string
	}{
		{key: "MDI-A-1-001", want: "MDI"},
		{key: "MDI", want: "MDI"},
		{key: "mdi-a-1-001", want: ""},
		{key: "1-A-MDI", want: ""},
	}

	for _, tt := range tests {
		event := &eventDomain.DomainEvent{
			AdditionalInformation: &eventDomain.AdditionalInformation{Key: tt.key},
		}

		prisonID, err := resolver.ResolvePrisonID(context.Background(), event)
		require.NoError(t, err)
		assert.Equal(t, tt.want, prisonID, "key %s", tt.key)
	}
}

func TestResolver_ResolvePrisonID_NothingPresent(t *testing.T) {
	resolver, _, _, _ := newResolver()

	prisonID, err := resolver.ResolvePrisonID(context.Background(), &eventDomain.DomainEvent{})
	require.NoError(t, err)
	assert.Equal(t, "", prisonID)
}
