package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/integration-events/internal/errors"
	"github.com/allisson/integration-events/internal/subscriber/domain"
)

func TestPostgreSQLPolicyRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewPostgreSQLPolicyRepository(db)

	t.Run("found", func(t *testing.T) {
		updatedAt := time.Now()
		rows := sqlmock.NewRows([]string{"client_id", "ciphertext", "updated_at"}).
			AddRow("client-one", []byte("encrypted"), updatedAt)

		mock.ExpectQuery("SELECT client_id, ciphertext, updated_at").
			WithArgs("client-one").
			WillReturnRows(rows)

		policy, err := repo.Get(context.Background(), "client-one")
		require.NoError(t, err)
		assert.Equal(t, "client-one", policy.ClientID)
		assert.Equal(t, []byte("encrypted"), policy.Ciphertext)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT client_id, ciphertext, updated_at").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"client_id", "ciphertext", "updated_at"}))

		_, err := repo.Get(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLPolicyRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewPostgreSQLPolicyRepository(db)

	mock.ExpectExec("INSERT INTO subscriber_policies").
		WithArgs("client-one", []byte("encrypted")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Upsert(context.Background(), &domain.StoredPolicy{
		ClientID:   "client-one",
		Ciphertext: []byte("encrypted"),
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLPolicyRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewMySQLPolicyRepository(db)

	mock.ExpectExec("INSERT INTO subscriber_policies").
		WithArgs("client-one", []byte("encrypted")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Upsert(context.Background(), &domain.StoredPolicy{
		ClientID:   "client-one",
		Ciphertext: []byte("encrypted"),
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
