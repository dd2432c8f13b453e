package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/integration-events/internal/outbox/domain"
)

func newPostgresMock(t *testing.T) (*PostgreSQLNotificationRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewPostgreSQLNotificationRepository(db), mock
}

func notificationColumns() []string {
	return []string{"id", "event_type", "hmpps_id", "prison_id", "url", "status", "claim_id", "last_modified_date_time"}
}

func TestPostgreSQLNotificationRepository_Upsert(t *testing.T) {
	repo, mock := newPostgresMock(t)

	notification := domain.NewEventNotification(
		"MAPPA_DETAIL_CHANGED",
		"/v1/persons/X123456/risks/mappadetail",
		"X123456",
		"",
	)

	mock.ExpectExec("INSERT INTO event_notifications").
		WithArgs(notification.ID, notification.EventType, notification.HmppsID,
			notification.PrisonID, notification.URL, notification.Status).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), notification)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLNotificationRepository_ClaimDue(t *testing.T) {
	repo, mock := newPostgresMock(t)

	cutoff := time.Now().Add(-5 * time.Minute)
	claimID := uuid.Must(uuid.NewV7()).String()

	mock.ExpectExec("UPDATE event_notifications").
		WithArgs(domain.NotificationStatusProcessing, claimID, domain.NotificationStatusPending, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.ClaimDue(context.Background(), cutoff, claimID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLNotificationRepository_ListClaimed(t *testing.T) {
	repo, mock := newPostgresMock(t)

	claimID := uuid.Must(uuid.NewV7()).String()
	id := uuid.Must(uuid.NewV7())
	hmppsID := "A1234BC"
	now := time.Now()

	rows := sqlmock.NewRows(notificationColumns()).
		AddRow(id, "PERSON_STATUS_CHANGED", &hmppsID, nil, "/v1/persons/A1234BC",
			domain.NotificationStatusProcessing, &claimID, now)

	mock.ExpectQuery("SELECT (.+) FROM event_notifications").
		WithArgs(claimID, domain.NotificationStatusProcessing).
		WillReturnRows(rows)

	claimed, err := repo.ListClaimed(context.Background(), claimID)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, id, claimed[0].ID)
	assert.Equal(t, "PERSON_STATUS_CHANGED", claimed[0].EventType)
	assert.Equal(t, "A1234BC", *claimed[0].HmppsID)
	assert.Nil(t, claimed[0].PrisonID)
	assert.Equal(t, domain.NotificationStatusProcessing, claimed[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLNotificationRepository_MarkProcessed(t *testing.T) {
	repo, mock := newPostgresMock(t)

	id := uuid.Must(uuid.NewV7())

	mock.ExpectExec("UPDATE event_notifications").
		WithArgs(domain.NotificationStatusProcessed, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkProcessed(context.Background(), id)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLNotificationRepository_ListStuck(t *testing.T) {
	repo, mock := newPostgresMock(t)

	before := time.Now().Add(-10 * time.Minute)
	activeClaimID := uuid.Must(uuid.NewV7()).String()
	staleClaimID := uuid.Must(uuid.NewV7()).String()
	id := uuid.Must(uuid.NewV7())

	rows := sqlmock.NewRows(notificationColumns()).
		AddRow(id, "RISK_SCORE_CHANGED", nil, nil, "/v1/persons/X123456/risks/scores",
			domain.NotificationStatusProcessing, &staleClaimID, time.Now().Add(-time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM event_notifications").
		WithArgs(domain.NotificationStatusProcessing, before, activeClaimID).
		WillReturnRows(rows)

	stuck, err := repo.ListStuck(context.Background(), before, activeClaimID)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, staleClaimID, *stuck[0].ClaimID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLNotificationRepository_DeleteProcessedBefore(t *testing.T) {
	repo, mock := newPostgresMock(t)

	cutoff := time.Now().Add(-24 * time.Hour)

	mock.ExpectExec("DELETE FROM event_notifications").
		WithArgs(domain.NotificationStatusProcessed, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	deleted, err := repo.DeleteProcessedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLNotificationRepository_List(t *testing.T) {
	repo, mock := newPostgresMock(t)

	id := uuid.Must(uuid.NewV7())

	rows := sqlmock.NewRows(notificationColumns()).
		AddRow(id, "PERSON_ALERTS_CHANGED", nil, nil, "/v1/persons/A1234BC/alerts",
			domain.NotificationStatusPending, nil, time.Now())

	mock.ExpectQuery("SELECT (.+) FROM event_notifications").
		WithArgs(domain.NotificationStatusPending, 0, 50).
		WillReturnRows(rows)

	notifications, err := repo.List(context.Background(), domain.NotificationStatusPending, 0, 50)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Nil(t, notifications[0].ClaimID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
