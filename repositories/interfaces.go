package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/llm-router/models"
)

// PolicyRepository handles routing policy persistence
type PolicyRepository interface {
	// Create creates a new routing policy
	Create(ctx context.Context, policy *models.RoutingPolicy) error

	// GetByID retrieves a routing policy by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.RoutingPolicy, error)

	// GetByDomainAction retrieves the enabled policy for an exact
	// (domain, action) pair; wildcard values are stored literally
	GetByDomainAction(ctx context.Context, domain, action string) (*models.RoutingPolicy, error)

	// List retrieves all routing policies ordered by priority
	List(ctx context.Context) ([]*models.RoutingPolicy, error)

	// Update replaces an existing routing policy
	Update(ctx context.Context, policy *models.RoutingPolicy) error

	// Delete removes a routing policy
	Delete(ctx context.Context, id uuid.UUID) error
}

// DecisionRepository handles decision record persistence. Decision fields
// are immutable after insert; only the outcome may be set, exactly once.
type DecisionRepository interface {
	// Insert appends a decision record
	Insert(ctx context.Context, record *models.DecisionRecord) error

	// GetByID retrieves a decision record by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.DecisionRecord, error)

	// SetOutcome back-fills the outcome of a decision. Fails when the
	// outcome was already recorded.
	SetOutcome(ctx context.Context, id uuid.UUID, outcome models.DecisionOutcome) error

	// ListRecent retrieves the most recent decision records for the
	// offline retraining pipeline
	ListRecent(ctx context.Context, limit int) ([]*models.DecisionRecord, error)
}
