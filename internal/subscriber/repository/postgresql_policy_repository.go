// Package repository implements subscriber policy storage.
package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/integration-events/internal/database"
	apperrors "github.com/allisson/integration-events/internal/errors"
	"github.com/allisson/integration-events/internal/subscriber/domain"
)

// PostgreSQLPolicyRepository implements policy storage using PostgreSQL.
type PostgreSQLPolicyRepository struct {
	db *sql.DB
}

// NewPostgreSQLPolicyRepository creates a new PostgreSQLPolicyRepository.
func NewPostgreSQLPolicyRepository(db *sql.DB) *PostgreSQLPolicyRepository {
	return &PostgreSQLPolicyRepository{db: db}
}

// Get retrieves one client's stored policy.
func (r *PostgreSQLPolicyRepository) Get(ctx context.Context, clientID string) (*domain.StoredPolicy, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT client_id, ciphertext, updated_at
			  FROM subscriber_policies
			  WHERE client_id = $1`

	policy := &domain.StoredPolicy{}
	err := querier.QueryRowContext(ctx, query, clientID).
		Scan(&policy.ClientID, &policy.Ciphertext, &policy.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "policy for client %s", clientID)
	}
	if err != nil {
		return nil, err
	}

	return policy, nil
}

// Upsert stores or replaces one client's policy.
func (r *PostgreSQLPolicyRepository) Upsert(ctx context.Context, policy *domain.StoredPolicy) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO subscriber_policies (client_id, ciphertext, updated_at)
			  VALUES ($1, $2, NOW())
			  ON CONFLICT (client_id)
			  DO UPDATE SET ciphertext = EXCLUDED.ciphertext, updated_at = NOW()`

	_, err := querier.ExecContext(ctx, query, policy.ClientID, policy.Ciphertext)
	return err
}
