package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/llm-router/models"
	"github.com/upb/llm-router/repositories"
	"github.com/upb/llm-router/services"
	"go.uber.org/zap"
)

// PolicyRepository implements the repositories.PolicyRepository interface
type PolicyRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewPolicyRepository creates a new routing policy repository
func NewPolicyRepository(db *DB, logger *zap.Logger) repositories.PolicyRepository {
	return &PolicyRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new routing policy
func (r *PolicyRepository) Create(ctx context.Context, policy *models.RoutingPolicy) error {
	query := `
		INSERT INTO routing_policies (id, domain, action, models, priority, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	modelsJSON, err := json.Marshal(policy.Models)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate models: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		policy.ID,
		policy.Domain,
		policy.Action,
		modelsJSON,
		policy.Priority,
		policy.Enabled,
		policy.CreatedAt,
		policy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create routing policy: %w", err)
	}

	r.logger.Debug("routing policy created", zap.String("id", policy.ID.String()))
	return nil
}

// GetByID retrieves a routing policy by ID
func (r *PolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RoutingPolicy, error) {
	query := `
		SELECT id, domain, action, models, priority, enabled, created_at, updated_at
		FROM routing_policies
		WHERE id = $1
	`

	return r.scanPolicy(r.db.QueryRowContext(ctx, query, id))
}

// GetByDomainAction retrieves the policy for an exact (domain, action) pair
func (r *PolicyRepository) GetByDomainAction(ctx context.Context, domain, action string) (*models.RoutingPolicy, error) {
	query := `
		SELECT id, domain, action, models, priority, enabled, created_at, updated_at
		FROM routing_policies
		WHERE domain = $1 AND action = $2
	`

	return r.scanPolicy(r.db.QueryRowContext(ctx, query, domain, action))
}

// List retrieves all routing policies ordered by priority
func (r *PolicyRepository) List(ctx context.Context) ([]*models.RoutingPolicy, error) {
	query := `
		SELECT id, domain, action, models, priority, enabled, created_at, updated_at
		FROM routing_policies
		ORDER BY priority DESC, domain, action
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list routing policies: %w", err)
	}
	defer rows.Close()

	var policies []*models.RoutingPolicy
	for rows.Next() {
		policy, err := r.scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}

	return policies, rows.Err()
}

// Update replaces an existing routing policy
func (r *PolicyRepository) Update(ctx context.Context, policy *models.RoutingPolicy) error {
	query := `
		UPDATE routing_policies
		SET domain = $2, action = $3, models = $4, priority = $5, enabled = $6, updated_at = $7
		WHERE id = $1
	`

	modelsJSON, err := json.Marshal(policy.Models)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate models: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query,
		policy.ID,
		policy.Domain,
		policy.Action,
		modelsJSON,
		policy.Priority,
		policy.Enabled,
		policy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update routing policy: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return services.ErrPolicyNotFound
	}

	r.logger.Debug("routing policy updated", zap.String("id", policy.ID.String()))
	return nil
}

// Delete removes a routing policy
func (r *PolicyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM routing_policies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete routing policy: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return services.ErrPolicyNotFound
	}

	r.logger.Debug("routing policy deleted", zap.String("id", id.String()))
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanPolicy scans one routing policy row
func (r *PolicyRepository) scanPolicy(row rowScanner) (*models.RoutingPolicy, error) {
	policy := &models.RoutingPolicy{}
	var modelsJSON []byte

	err := row.Scan(
		&policy.ID,
		&policy.Domain,
		&policy.Action,
		&modelsJSON,
		&policy.Priority,
		&policy.Enabled,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, services.ErrPolicyNotFound
		}
		return nil, fmt.Errorf("failed to scan routing policy: %w", err)
	}

	if err := json.Unmarshal(modelsJSON, &policy.Models); err != nil {
		return nil, fmt.Errorf("failed to unmarshal candidate models: %w", err)
	}

	return policy, nil
}
