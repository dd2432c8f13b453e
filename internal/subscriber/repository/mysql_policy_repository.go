package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/integration-events/internal/database"
	apperrors "github.com/allisson/integration-events/internal/errors"
	"github.com/allisson/integration-events/internal/subscriber/domain"
)

// MySQLPolicyRepository implements policy storage using MySQL.
type MySQLPolicyRepository struct {
	db *sql.DB
}

// NewMySQLPolicyRepository creates a new MySQLPolicyRepository.
func NewMySQLPolicyRepository(db *sql.DB) *MySQLPolicyRepository {
	return &MySQLPolicyRepository{db: db}
}

// Get retrieves one client's stored policy.
func (r *MySQLPolicyRepository) Get(ctx context.Context, clientID string) (*domain.StoredPolicy, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT client_id, ciphertext, updated_at
			  FROM subscriber_policies
			  WHERE client_id = ?`

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
func (r *MySQLPolicyRepository) Upsert(ctx context.Context, policy *domain.StoredPolicy) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO subscriber_policies (client_id, ciphertext, updated_at)
			  VALUES (?, ?, NOW(6))
			  ON DUPLICATE KEY UPDATE ciphertext = VALUES(ciphertext), updated_at = NOW(6)`

	_, err := querier.ExecContext(ctx, query, policy.ClientID, policy.Ciphertext)
	return err
}
