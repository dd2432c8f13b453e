package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/allisson/integration-events/internal/database"
	"github.com/allisson/integration-events/internal/outbox/domain"
)

// MySQLNotificationRepository handles event notification persistence for MySQL.
type MySQLNotificationRepository struct {
	db *sql.DB
}

// NewMySQLNotificationRepository creates a new MySQLNotificationRepository.
func NewMySQLNotificationRepository(db *sql.DB) *MySQLNotificationRepository {
	return &MySQLNotificationRepository{
		db: db,
	}
}

// mysqlErrDuplicateEntry is the MySQL error number for a unique key violation.
const mysqlErrDuplicateEntry = 1062

// Upsert bumps the existing PENDING row for (url, event_type) or inserts a new
// one. The functional unique index over PENDING rows makes the dedupe safe
// under concurrency: when two upserts of the same pair race and both reach the
// insert, the loser gets a duplicate-key error and retries the update against
// the winner's row.
func (r *MySQLNotificationRepository) Upsert(ctx context.Context, notification *domain.EventNotification) error {
	querier := database.GetTx(ctx, r.db)

	affected, err := r.touchPending(ctx, querier, notification)
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	insert := `INSERT INTO event_notifications (id, event_type, hmpps_id, prison_id, url, status, last_modified_date_time)
			   VALUES (?, ?, ?, ?, ?, ?, NOW(6))`

	_, err = querier.ExecContext(ctx, insert, notification.ID.String(), notification.EventType,
		notification.HmppsID, notification.PrisonID, notification.URL, notification.Status)
	if err == nil {
		return nil
	}

	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) || mysqlErr.Number != mysqlErrDuplicateEntry {
		return err
	}

	// Lost the race against a concurrent insert of the same pair; coalesce
	// into the row that won.
	_, err = r.touchPending(ctx, querier, notification)
	return err
}

func (r *MySQLNotificationRepository) touchPending(
	ctx context.Context,
	querier database.Querier,
	notification *domain.EventNotification,
) (int64, error) {
	update := `UPDATE event_notifications
			   SET last_modified_date_time = NOW(6)
			   WHERE url = ? AND event_type = ? AND status = ?`

	result, err := querier.ExecContext(ctx, update, notification.URL, notification.EventType,
		domain.NotificationStatusPending)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// ClaimDue atomically moves every due PENDING row to PROCESSING under this
// round's claim id.
func (r *MySQLNotificationRepository) ClaimDue(ctx context.Context, cutoff time.Time, claimID string) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE event_notifications
			  SET status = ?, claim_id = ?, last_modified_date_time = NOW(6)
			  WHERE status = ? AND last_modified_date_time <= ?`

	_, err := querier.ExecContext(ctx, query, domain.NotificationStatusProcessing, claimID,
		domain.NotificationStatusPending, cutoff)

	return err
}

// ListClaimed retrieves the PROCESSING rows tagged with the given claim id.
func (r *MySQLNotificationRepository) ListClaimed(ctx context.Context, claimID string) ([]*domain.EventNotification, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, event_type, hmpps_id, prison_id, url, status, claim_id, last_modified_date_time
			  FROM event_notifications
			  WHERE claim_id = ? AND status = ?
			  ORDER BY last_modified_date_time ASC`

	rows, err := querier.QueryContext(ctx, query, claimID, domain.NotificationStatusProcessing)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanMySQLNotifications(rows)
}

// MarkProcessed transitions one row to PROCESSED.
func (r *MySQLNotificationRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE event_notifications
			  SET status = ?, last_modified_date_time = NOW(6)
			  WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, domain.NotificationStatusProcessed, id.String())

	return err
}

// ListStuck retrieves PROCESSING rows older than the threshold outside the
// active claim batch.
func (r *MySQLNotificationRepository) ListStuck(
	ctx context.Context,
	before time.Time,
	excludeClaimID string,
) ([]*domain.EventNotification, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, event_type, hmpps_id, prison_id, url, status, claim_id, last_modified_date_time
			  FROM event_notifications
			  WHERE status = ? AND last_modified_date_time < ?
			    AND (claim_id IS NULL OR claim_id <> ?)
			  ORDER BY last_modified_date_time ASC`

	rows, err := querier.QueryContext(ctx, query, domain.NotificationStatusProcessing, before, excludeClaimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanMySQLNotifications(rows)
}

// DeleteProcessedBefore removes PROCESSED rows last modified before the cutoff.
func (r *MySQLNotificationRepository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM event_notifications
			  WHERE status = ? AND last_modified_date_time < ?`

	result, err := querier.ExecContext(ctx, query, domain.NotificationStatusProcessed, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// List retrieves notifications filtered by status with pagination, newest first.
func (r *MySQLNotificationRepository) List(
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
				  WHERE status = ?
				  ORDER BY last_modified_date_time DESC
				  LIMIT ? OFFSET ?`
		rows, err = querier.QueryContext(ctx, query, status, limit, offset)
	} else {
		query := `SELECT id, event_type, hmpps_id, prison_id, url, status, claim_id, last_modified_date_time
				  FROM event_notifications
				  ORDER BY last_modified_date_time DESC
				  LIMIT ? OFFSET ?`
		rows, err = querier.QueryContext(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanMySQLNotifications(rows)
}

// scanMySQLNotifications scans rows whose id column is stored as char(36).
func scanMySQLNotifications(rows *sql.Rows) ([]*domain.EventNotification, error) {
	var notifications []*domain.EventNotification
	for rows.Next() {
		var notification domain.EventNotification
		var id string

		err := rows.Scan(&id, &notification.EventType, &notification.HmppsID,
			&notification.PrisonID, &notification.URL, &notification.Status,
			&notification.ClaimID, &notification.LastModifiedDateTime)
		if err != nil {
			return nil, err
		}

		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		notification.ID = parsed

		notifications = append(notifications, &notification)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}
