package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/integration-events/internal/errors"
	"github.com/allisson/integration-events/internal/event/registry"
	"github.com/allisson/integration-events/internal/subscriber/domain"
)

// MockAuthorizationAPI is a mock implementation of AuthorizationAPI
type MockAuthorizationAPI struct {
	mock.Mock
}

func (m *MockAuthorizationAPI) FetchClientEndpoints(ctx context.Context) (map[string][]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]string), args.Error(1)
}

// MockSubscriptionAdmin is a mock implementation of SubscriptionAdmin
type MockSubscriptionAdmin struct {
	mock.Mock
}

func (m *MockSubscriptionAdmin) SetFilterPolicy(ctx context.Context, clientID string, eventTypes []string) error {
	args := m.Called(ctx, clientID, eventTypes)
	return args.Error(0)
}

// MockPolicyRepository is a mock implementation of PolicyRepository
type MockPolicyRepository struct {
	mock.Mock
}

func (m *MockPolicyRepository) Get(ctx context.Context, clientID string) (*domain.StoredPolicy, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StoredPolicy), args.Error(1)
}

func (m *MockPolicyRepository) Upsert(ctx context.Context, policy *domain.StoredPolicy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}

// plainKeeper passes policy bodies through unchanged.
type plainKeeper struct{}

func (plainKeeper) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	return plaintext, nil
}

func (plainKeeper) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	return ciphertext, nil
}

func newSyncUseCase(
	authAPI *MockAuthorizationAPI,
	admin *MockSubscriptionAdmin,
	repo *MockPolicyRepository,
) *SyncUseCase {
	return NewSyncUseCase(time.Minute, authAPI, admin, plainKeeper{}, repo, nil, nil)
}

func storedPolicy(t *testing.T, clientID string, eventTypes ...string) *domain.StoredPolicy {
	t.Helper()
	body, err := json.Marshal(domain.FilterPolicy{AllowedEventTypes: eventTypes})
	require.NoError(t, err)
	return &domain.StoredPolicy{ClientID: clientID, Ciphertext: body}
}

func TestSyncUseCase_Sync_NewClient(t *testing.T) {
	authAPI := &MockAuthorizationAPI{}
	admin := &MockSubscriptionAdmin{}
	repo := &MockPolicyRepository{}
	uc := newSyncUseCase(authAPI, admin, repo)

	authAPI.On("FetchClientEndpoints", mock.Anything).Return(map[string][]string{
		"client-one": {"/v1/persons/{hmppsId}/risks/mappadetail"},
	}, nil)
	repo.On("Get", mock.Anything, "client-one").
		Return(nil, apperrors.Wrap(apperrors.ErrNotFound, "policy for client client-one"))
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(p *domain.StoredPolicy) bool {
		var policy domain.FilterPolicy
		if err := json.Unmarshal(p.Ciphertext, &policy); err != nil {
			return false
		}
		return p.ClientID == "client-one" &&
			policy.Equal(domain.FilterPolicy{AllowedEventTypes: []string{registry.MappaDetailChanged}})
	})).Return(nil)
	admin.On("SetFilterPolicy", mock.Anything, "client-one", []string{registry.MappaDetailChanged}).
		Return(nil)

	err := uc.Sync(context.Background())

	require.NoError(t, err)
	repo.AssertExpectations(t)
	admin.AssertExpectations(t)
}

func TestSyncUseCase_Sync_UnchangedPolicySkipsUpdate(t *testing.T) {
	authAPI := &MockAuthorizationAPI{}
	admin := &MockSubscriptionAdmin{}
	repo := &MockPolicyRepository{}
	uc := newSyncUseCase(authAPI, admin, repo)

	authAPI.On("FetchClientEndpoints", mock.Anything).Return(map[string][]string{
		"client-one": {"/v1/persons/{hmppsId}/risks/mappadetail"},
	}, nil)
	repo.On("Get", mock.Anything, "client-one").
		Return(storedPolicy(t, "client-one", registry.MappaDetailChanged), nil)

	err := uc.Sync(context.Background())

	require.NoError(t, err)
	repo.AssertNotCalled(t, "Upsert")
	admin.AssertNotCalled(t, "SetFilterPolicy")
}

func TestSyncUseCase_Sync_BothNotationsGrantTheSameType(t *testing.T) {
	authAPI := &MockAuthorizationAPI{}
	admin := &MockSubscriptionAdmin{}
	repo := &MockPolicyRepository{}
	uc := newSyncUseCase(authAPI, admin, repo)

	// The regex notation and the template notation describe the same endpoint.
	eventTypes := uc.resolveEventTypes("client-one", []string{"/v1/persons/.*"})
	assert.Contains(t, eventTypes, registry.PersonStatusChanged)

	templated := uc.resolveEventTypes("client-one", []string{"/v1/persons/{hmppsId}"})
	assert.Equal(t, eventTypes, templated)
}

func TestSyncUseCase_Sync_InvalidEndpointPatternIsSkipped(t *testing.T) {
	authAPI := &MockAuthorizationAPI{}
	admin := &MockSubscriptionAdmin{}
	repo := &MockPolicyRepository{}
	uc := newSyncUseCase(authAPI, admin, repo)

	// Mixed notation is rejected by the matcher; the valid pattern still grants.
	eventTypes := uc.resolveEventTypes("client-one", []string{
		"/v1/persons/{hmppsId}/risks/.*",
		"/v1/persons/{hmppsId}",
	})
	assert.Equal(t, []string{registry.PersonStatusChanged}, eventTypes)
}

func TestSyncUseCase_Sync_PerClientFailureDoesNotStopThePass(t *testing.T) {
	authAPI := &MockAuthorizationAPI{}
	admin := &MockSubscriptionAdmin{}
	repo := &MockPolicyRepository{}
	uc := newSyncUseCase(authAPI, admin, repo)

	authAPI.On("FetchClientEndpoints", mock.Anything).Return(map[string][]string{
		"client-broken": {"/v1/persons/{hmppsId}"},
		"client-ok":     {"/v1/persons/{hmppsId}"},
	}, nil)
	repo.On("Get", mock.Anything, "client-broken").
		Return(nil, errors.New("database error"))
	repo.On("Get", mock.Anything, "client-ok").
		Return(nil, apperrors.Wrap(apperrors.ErrNotFound, "policy for client client-ok"))
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(p *domain.StoredPolicy) bool {
		return p.ClientID == "client-ok"
	})).Return(nil)
	admin.On("SetFilterPolicy", mock.Anything, "client-ok", mock.Anything).Return(nil)

	err := uc.Sync(context.Background())

	require.NoError(t, err)
	repo.AssertExpectations(t)
	admin.AssertExpectations(t)
}

func TestSyncUseCase_Sync_FetchError(t *testing.T) {
	authAPI := &MockAuthorizationAPI{}
	uc := newSyncUseCase(authAPI, &MockSubscriptionAdmin{}, &MockPolicyRepository{})

	authAPI.On("FetchClientEndpoints", mock.Anything).
		Return(nil, errors.New("authorization api unavailable"))

	err := uc.Sync(context.Background())
	require.Error(t, err)
}

func TestSyncUseCase_Start_ContextCancellation(t *testing.T) {
	uc := newSyncUseCase(&MockAuthorizationAPI{}, &MockSubscriptionAdmin{}, &MockPolicyRepository{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := uc.Start(ctx)
	assert.Equal(t, context.Canceled, err)
}
