// Package repository provides data persistence implementations for outbox entities.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/integration-events/internal/database"
	"github.com/allisson/integration-events/internal/outbox/domain"
)

// PostgreSQLNotificationRepository handles event notification persistence for PostgreSQL.
type PostgreSQLNotificationRepository struct {
	db *sql.DB
}

// NewPostgreSQLNotificationRepository creates a new PostgreSQLNotificationRepository.
func NewPostgreSQLNotificationRepository(db *sql.DB) *PostgreSQLNotificationRepository {
	return &PostgreSQLNotificationRepository{
		db: db,
	}
}

// Upsert inserts a PENDING notification, or bumps last_modified_date_time on the
// existing PENDING row for the same (url, event_type). The arbiter is a partial
// unique index over PENDING rows, so rows already claimed do not block a fresh
// generation of the same logical change.
func (r *PostgreSQLNotificationRepository) Upsert(ctx context.Context, notification *domain.EventNotification) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO event_notifications (id, event_type, hmpps_id, prison_id, url, status, last_modified_date_time)
			  VALUES ($1, $2, $3, $4, $5, $6, NOW())
			  ON CONFLICT (url, event_type) WHERE status = 'PENDING'
			  DO UPDATE SET last_modified_date_time = NOW()`

	_, err := querier.ExecContext(ctx, query, notification.ID, notification.EventType,
		notification.HmppsID, notification.PrisonID, notification.URL, notification.Status)

	return err
}

// ClaimDue atomically moves every PENDING row not modified since the cutoff to
// PROCESSING, tagged with this round's claim id. The single set-based update is
// what lets concurrent scheduler instances partition the due rows instead of
// double-claiming them.
func (r *PostgreSQLNotificationRepository) ClaimDue(ctx context.Context, cutoff time.Time, claimID string) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE event_notifications
			  SET status = $1, claim_id = $2, last_modified_date_time = NOW()
			  WHERE status = $3 AND last_modified_date_time <= $4`

	_, err := querier.ExecContext(ctx, query, domain.NotificationStatusProcessing, claimID,
		domain.NotificationStatusPending, cutoff)

	return err
}

// ListClaimed retrieves the PROCESSING rows tagged with the given claim id.
func (r *PostgreSQLNotificationRepository) ListClaimed(ctx context.Context, claimID string) ([]*domain.EventNotification, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, event_type, hmpps_id, prison_id, url, status, claim_id, last_modified_date_time
			  FROM event_notifications
			  WHERE claim_id = $1 AND status = $2
			  ORDER BY last_modified_date_time ASC`

	rows, err := querier.QueryContext(ctx, query, claimID, domain.NotificationStatusProcessing)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanNotifications(rows)
}

// MarkProcessed transitions one row to PROCESSED.
func (r *PostgreSQLNotificationRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE event_notifications
			  SET status = $1, last_modified_date_time = NOW()
			  WHERE id = $2`

	_, err := querier.ExecContext(ctx, query, domain.NotificationStatusProcessed, id)

	return err
}

// ListStuck retrieves PROCESSING rows older than the given threshold that are
// not part of the active claim batch. These rows indicate a publish that
// neither succeeded nor was cleanly reported as failed.
func (r *PostgreSQLNotificationRepository) ListStuck(
	ctx context.Context,
	before time.Time,
	excludeClaimID string,
) ([]*domain.EventNotification, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, event_type, hmpps_id, prison_id, url, status, claim_id, last_modified_date_time
			  FROM event_notifications
			  WHERE status = $1 AND last_modified_date_time < $2
			    AND (claim_id IS NULL OR claim_id <> $3)
			  ORDER BY last_modified_date_time ASC`

	rows, err := querier.QueryContext(ctx, query, domain.NotificationStatusProcessing, before, excludeClaimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanNotifications(rows)
}

// DeleteProcessedBefore removes PROCESSED rows last modified before the cutoff
// and returns how many were deleted.
func (r *PostgreSQLNotificationRepository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM event_notifications
			  WHERE status = $1 AND last_modified_date_time < $2`

	result, err := querier.ExecContext(ctx, query, domain.NotificationStatusProcessed, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// List retrieves notifications filtered by status with pagination, newest first.
// An empty status returns all rows.
func (r *PostgreSQLNotificationRepository) List(
	ctx context.Context,
	status domain.NotificationStatus,
	offset, limit int,
) ([]*domain.EventNotification, error) {
	querier := database.GetTx(ctx, r.db)

	var rows *sql.Rows
	var err error

	if status != "" {
		query := `SELECT id, event_type, hmpps_id, prison_id, url, status, claim_id, last_modified_date_time
				  FROM event_notifications
				  WHERE status = $1
				  ORDER BY last_modified_date_time DESC
				  OFFSET $2 LIMIT $3`
		rows, err = querier.QueryContext(ctx, query, status, offset, limit)
	} else {
		query := `SELECT id, event_type, hmpps_id, prison_id, url, status, claim_id, last_modified_date_time
				  FROM event_notifications
				  ORDER BY last_modified_date_time DESC
				  OFFSET $1 LIMIT $2`
		rows, err = querier.QueryContext(ctx, query, offset, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanNotifications(rows)
}

// scanNotifications scans every row in the result set into notifications.
func scanNotifications(rows *sql.Rows) ([]*domain.EventNotification, error) {
	var notifications []*domain.EventNotification
	for rows.Next() {
		var notification domain.EventNotification

		err := rows.Scan(&notification.ID, &notification.EventType, &notification.HmppsID,
			&notification.PrisonID, &notification.URL, &notification.Status,
			&notification.ClaimID, &notification.LastModifiedDateTime)
		if err != nil {
			return nil, err
		}

		notifications = append(notifications, &notification)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}
