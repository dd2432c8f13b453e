// Package usecase implements the outbox dispatch logic: claiming due
// notifications, publishing them downstream and keeping the table healthy.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/integration-events/internal/metrics"
	"github.com/allisson/integration-events/internal/outbox/domain"
)

// Config holds dispatcher use case configuration
type Config struct {
	// Interval is the delay between dispatch rounds.
	Interval time.Duration
	// ClaimCutoff is the minimum age of a PENDING row before it is claimed,
	// so that bursts of the same logical change coalesce before delivery.
	ClaimCutoff time.Duration
	// Concurrency caps parallel publishes within one round.
	Concurrency int
	// StuckThreshold is the PROCESSING age beyond which a row counts as stuck.
	StuckThreshold time.Duration
	// RetentionInterval is the delay between retention sweeps.
	RetentionInterval time.Duration
	// RetentionPeriod is how long PROCESSED rows are kept.
	RetentionPeriod time.Duration
}

// NotificationRepository defines the outbox storage operations the dispatcher needs
type NotificationRepository interface {
	ClaimDue(ctx context.Context, cutoff time.Time, claimID string) error
	ListClaimed(ctx context.Context, claimID string) ([]*domain.EventNotification, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	ListStuck(ctx context.Context, before time.Time, excludeClaimID string) ([]*domain.EventNotification, error)
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Publisher delivers one notification to the downstream topic
type Publisher interface {
	Publish(ctx context.Context, notification *domain.EventNotification) error
}

// DeadLetterSink receives notifications whose publish failed
type DeadLetterSink interface {
	SendFailed(ctx context.Context, notification *domain.EventNotification, cause error) error
}

// DispatcherUseCase implements the claim-publish-mark dispatch cycle
type DispatcherUseCase struct {
	config          Config
	repo            NotificationRepository
	publisher       Publisher
	deadLetter      DeadLetterSink
	businessMetrics metrics.BusinessMetrics
	logger          *slog.Logger
}

// defaultConcurrency is used when the configured publish concurrency is not
// positive. errgroup.SetLimit(0) would block every Go call and hang the round.
const defaultConcurrency = 10

// NewDispatcherUseCase creates a new DispatcherUseCase
func NewDispatcherUseCase(
	config Config,
	repo NotificationRepository,
	publisher Publisher,
	deadLetter DeadLetterSink,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *DispatcherUseCase {
	if config.Concurrency <= 0 {
		config.Concurrency = defaultConcurrency
	}
	return &DispatcherUseCase{
		config:          config,
		repo:            repo,
		publisher:       publisher,
		deadLetter:      deadLetter,
		businessMetrics: businessMetrics,
		logger:          logger,
	}
}

// Start runs the dispatch loop until the context is cancelled.
func (uc *DispatcherUseCase) Start(ctx context.Context) error {
	if uc.logger != nil {
		uc.logger.Info("starting outbox dispatcher",
			slog.Duration("interval", uc.config.Interval),
			slog.Duration("claim_cutoff", uc.config.ClaimCutoff),
			slog.Int("concurrency", uc.config.Concurrency),
		)
	}

	ticker := time.NewTicker(uc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if uc.logger != nil {
				uc.logger.Info("stopping outbox dispatcher")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := uc.RunDispatchRound(ctx); err != nil {
				if uc.logger != nil {
					uc.logger.Error("dispatch round failed", slog.Any("error", err))
				}
			}
		}
	}
}

// StartRetention runs the retention sweep loop until the context is cancelled.
// Sweep failures are logged and do not stop the loop.
func (uc *DispatcherUseCase) StartRetention(ctx context.Context) error {
	if uc.logger != nil {
		uc.logger.Info("starting outbox retention sweeper",
			slog.Duration("interval", uc.config.RetentionInterval),
			slog.Duration("retention_period", uc.config.RetentionPeriod),
		)
	}

	ticker := time.NewTicker(uc.config.RetentionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if uc.logger != nil {
				uc.logger.Info("stopping outbox retention sweeper")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := uc.RunRetentionSweep(ctx); err != nil {
				if uc.logger != nil {
					uc.logger.Error("retention sweep failed", slog.Any("error", err))
				}
			}
		}
	}
}

// RunDispatchRound performs one dispatch cycle: claim every due PENDING row
// under a fresh claim id, publish the claimed rows in parallel and mark each
// successful publish PROCESSED. A failed publish leaves its row PROCESSING; the
// stuck scan at the end of the round reports rows that stayed there past the
// threshold, excluding the batch still in flight.
func (uc *DispatcherUseCase) RunDispatchRound(ctx context.Context) error {
	claimID := uuid.Must(uuid.NewV7()).String()
	cutoff := time.Now().Add(-uc.config.ClaimCutoff)

	if err := uc.repo.ClaimDue(ctx, cutoff, claimID); err != nil {
		uc.recordOperation(ctx, "dispatch", "error")
		return err
	}

	claimed, err := uc.repo.ListClaimed(ctx, claimID)
	if err != nil {
		uc.recordOperation(ctx, "dispatch", "error")
		return err
	}

	if len(claimed) > 0 {
		if uc.logger != nil {
			uc.logger.Info("dispatching notifications",
				slog.String("claim_id", claimID),
				slog.Int("count", len(claimed)),
			)
		}

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(uc.config.Concurrency)

		for _, notification := range claimed {
			group.Go(func() error {
				uc.dispatchNotification(groupCtx, notification)
				return nil
			})
		}

		// Per-row failures are handled inside dispatchNotification; the group
		// only propagates context cancellation.
		_ = group.Wait()
	}

	uc.reportStuck(ctx, claimID)
	uc.recordOperation(ctx, "dispatch", "success")
	return nil
}

// dispatchNotification publishes one claimed row and marks it PROCESSED on
// success. On failure the row keeps its PROCESSING status and claim id so a
// later stuck scan can surface it.
func (uc *DispatcherUseCase) dispatchNotification(ctx context.Context, notification *domain.EventNotification) {
	if err := uc.publisher.Publish(ctx, notification); err != nil {
		if uc.logger != nil {
			uc.logger.Error("failed to publish notification",
				slog.String("notification_id", notification.ID.String()),
				slog.String("event_type", notification.EventType),
				slog.Any("error", err),
			)
		}
		uc.recordOperation(ctx, "publish", "error")
		if uc.deadLetter != nil {
			if dlqErr := uc.deadLetter.SendFailed(ctx, notification, err); dlqErr != nil && uc.logger != nil {
				uc.logger.Error("failed to dead-letter notification",
					slog.String("notification_id", notification.ID.String()),
					slog.Any("error", dlqErr),
				)
			}
		}
		return
	}

	if err := uc.repo.MarkProcessed(ctx, notification.ID); err != nil {
		if uc.logger != nil {
			uc.logger.Error("failed to mark notification processed",
				slog.String("notification_id", notification.ID.String()),
				slog.Any("error", err),
			)
		}
		uc.recordOperation(ctx, "publish", "error")
		return
	}

	uc.recordOperation(ctx, "publish", "success")
}

// reportStuck surfaces PROCESSING rows older than the stuck threshold that do
// not belong to the claim batch currently in flight.
func (uc *DispatcherUseCase) reportStuck(ctx context.Context, excludeClaimID string) {
	before := time.Now().Add(-uc.config.StuckThreshold)

	stuck, err := uc.repo.ListStuck(ctx, before, excludeClaimID)
	if err != nil {
		if uc.logger != nil {
			uc.logger.Error("stuck notification scan failed", slog.Any("error", err))
		}
		return
	}

	if len(stuck) == 0 {
		return
	}

	// One report per round, not one per row; a backlog of stuck rows must not
	// flood the log.
	if uc.logger != nil {
		ids := make([]string, len(stuck))
		oldest := stuck[0].LastModifiedDateTime
		for i, notification := range stuck {
			ids[i] = notification.ID.String()
			if notification.LastModifiedDateTime.Before(oldest) {
				oldest = notification.LastModifiedDateTime
			}
		}
		uc.logger.Error("notifications stuck in processing",
			slog.Int("count", len(stuck)),
			slog.Time("oldest_last_modified", oldest),
			slog.Any("notification_ids", ids),
		)
	}
	uc.recordOperation(ctx, "stuck_scan", "stuck")
}

// RunRetentionSweep deletes PROCESSED rows older than the retention period.
func (uc *DispatcherUseCase) RunRetentionSweep(ctx context.Context) error {
	cutoff := time.Now().Add(-uc.config.RetentionPeriod)

	deleted, err := uc.repo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		uc.recordOperation(ctx, "retention", "error")
		return err
	}

	if deleted > 0 && uc.logger != nil {
		uc.logger.Info("deleted processed notifications",
			slog.Int64("count", deleted),
			slog.Time("cutoff", cutoff),
		)
	}

	uc.recordOperation(ctx, "retention", "success")
	return nil
}

func (uc *DispatcherUseCase) recordOperation(ctx context.Context, operation, status string) {
	if uc.businessMetrics != nil {
		uc.businessMetrics.RecordOperation(ctx, "outbox", operation, status)
	}
}
