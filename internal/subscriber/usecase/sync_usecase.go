// Package usecase implements subscriber policy reconciliation: mapping each
// client's allowed endpoints to integration event types and keeping the stored
// filter policies and topic subscription attributes in sync.
package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"time"

	apperrors "github.com/allisson/integration-events/internal/errors"
	"github.com/allisson/integration-events/internal/event/registry"
	"github.com/allisson/integration-events/internal/metrics"
	"github.com/allisson/integration-events/internal/subscriber/domain"
	"github.com/allisson/integration-events/internal/urlmatch"
)

// AuthorizationAPI fetches the client to allowed-endpoints map.
type AuthorizationAPI interface {
	FetchClientEndpoints(ctx context.Context) (map[string][]string, error)
}

// SubscriptionAdmin updates the filter policy attribute on a client's topic
// subscription.
type SubscriptionAdmin interface {
	SetFilterPolicy(ctx context.Context, clientID string, eventTypes []string) error
}

// Keeper encrypts and decrypts policy bodies. *secrets.Keeper implements it.
type Keeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// PolicyRepository defines subscriber policy storage operations
type PolicyRepository interface {
	Get(ctx context.Context, clientID string) (*domain.StoredPolicy, error)
	Upsert(ctx context.Context, policy *domain.StoredPolicy) error
}

// SyncUseCase reconciles subscriber filter policies against the authorization API
type SyncUseCase struct {
	interval        time.Duration
	authAPI         AuthorizationAPI
	admin           SubscriptionAdmin
	keeper          Keeper
	repo            PolicyRepository
	businessMetrics metrics.BusinessMetrics
	logger          *slog.Logger
}

// NewSyncUseCase creates a new SyncUseCase
func NewSyncUseCase(
	interval time.Duration,
	authAPI AuthorizationAPI,
	admin SubscriptionAdmin,
	keeper Keeper,
	repo PolicyRepository,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *SyncUseCase {
	return &SyncUseCase{
		interval:        interval,
		authAPI:         authAPI,
		admin:           admin,
		keeper:          keeper,
		repo:            repo,
		businessMetrics: businessMetrics,
		logger:          logger,
	}
}

// Start runs periodic reconciliation until the context is cancelled.
func (uc *SyncUseCase) Start(ctx context.Context) error {
	if uc.logger != nil {
		uc.logger.Info("starting subscriber sync", slog.Duration("interval", uc.interval))
	}

	ticker := time.NewTicker(uc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if uc.logger != nil {
				uc.logger.Info("stopping subscriber sync")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := uc.Sync(ctx); err != nil {
				if uc.logger != nil {
					uc.logger.Error("subscriber sync failed", slog.Any("error", err))
				}
			}
		}
	}
}

// Sync runs one reconciliation pass over every client the authorization API
// knows about. Per-client failures are logged and do not stop the pass.
func (uc *SyncUseCase) Sync(ctx context.Context) error {
	clients, err := uc.authAPI.FetchClientEndpoints(ctx)
	if err != nil {
		uc.recordOperation(ctx, "sync", "error")
		return apperrors.Wrap(err, "fetching client endpoints")
	}

	for clientID, endpoints := range clients {
		if err := uc.syncClient(ctx, clientID, endpoints); err != nil {
			if uc.logger != nil {
				uc.logger.Error("failed to sync subscriber",
					slog.String("client_id", clientID),
					slog.Any("error", err),
				)
			}
			uc.recordOperation(ctx, "sync_client", "error")
			continue
		}
		uc.recordOperation(ctx, "sync_client", "success")
	}

	uc.recordOperation(ctx, "sync", "success")
	return nil
}

// syncClient computes the event types the client's endpoints grant and, when
// they differ from the stored policy, updates both the encrypted policy row and
// the subscription filter attribute.
func (uc *SyncUseCase) syncClient(ctx context.Context, clientID string, endpoints []string) error {
	desired := domain.FilterPolicy{AllowedEventTypes: uc.resolveEventTypes(clientID, endpoints)}

	current, err := uc.loadPolicy(ctx, clientID)
	if err != nil {
		return err
	}

	if current != nil && desired.Equal(*current) {
		return nil
	}

	plaintext, err := json.Marshal(desired)
	if err != nil {
		return err
	}

	ciphertext, err := uc.keeper.Encrypt(ctx, plaintext)
	if err != nil {
		return apperrors.Wrap(err, "encrypting policy")
	}

	err = uc.repo.Upsert(ctx, &domain.StoredPolicy{
		ClientID:   clientID,
		Ciphertext: ciphertext,
	})
	if err != nil {
		return err
	}

	if err := uc.admin.SetFilterPolicy(ctx, clientID, desired.AllowedEventTypes); err != nil {
		return apperrors.Wrap(err, "updating subscription filter policy")
	}

	if uc.logger != nil {
		uc.logger.Info("updated subscriber filter policy",
			slog.String("client_id", clientID),
			slog.Int("event_types", len(desired.AllowedEventTypes)),
		)
	}

	return nil
}

// resolveEventTypes maps endpoint patterns to event type names. An endpoint
// grants an event type when both normalize to the same canonical pattern, so
// clients may express endpoints in either notation.
func (uc *SyncUseCase) resolveEventTypes(clientID string, endpoints []string) []string {
	var normalized []string
	for _, endpoint := range endpoints {
		canonical, err := urlmatch.Normalize(endpoint)
		if err != nil {
			if uc.logger != nil {
				uc.logger.Warn("skipping invalid endpoint pattern",
					slog.String("client_id", clientID),
					slog.String("endpoint", endpoint),
					slog.Any("error", err),
				)
			}
			continue
		}
		normalized = append(normalized, canonical)
	}

	var eventTypes []string
	for _, def := range registry.All() {
		canonical, err := urlmatch.Normalize(def.PathTemplate)
		if err != nil {
			continue
		}
		if slices.Contains(normalized, canonical) {
			eventTypes = append(eventTypes, def.Name)
		}
	}

	slices.Sort(eventTypes)
	return slices.Compact(eventTypes)
}

// loadPolicy returns the decrypted stored policy or nil when none exists yet.
func (uc *SyncUseCase) loadPolicy(ctx context.Context, clientID string) (*domain.FilterPolicy, error) {
	stored, err := uc.repo.Get(ctx, clientID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	plaintext, err := uc.keeper.Decrypt(ctx, stored.Ciphertext)
	if err != nil {
		return nil, apperrors.Wrap(err, "decrypting policy")
	}

	var policy domain.FilterPolicy
	if err := json.Unmarshal(plaintext, &policy); err != nil {
		return nil, apperrors.Wrap(err, "decoding policy")
	}

	return &policy, nil
}

func (uc *SyncUseCase) recordOperation(ctx context.Context, operation, status string) {
	if uc.businessMetrics != nil {
		uc.businessMetrics.RecordOperation(ctx, "subscriber", operation, status)
	}
}
