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

// DecisionRepository implements the repositories.DecisionRepository interface
type DecisionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewDecisionRepository creates a new decision record repository
func NewDecisionRepository(db *DB, logger *zap.Logger) repositories.DecisionRepository {
	return &DecisionRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends a decision record
func (r *DecisionRepository) Insert(ctx context.Context, record *models.DecisionRecord) error {
	query := `
		INSERT INTO decision_records (id, prompt, classification, features, candidates, selected_model, latency_ms, created_at, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL)
	`

	classificationJSON, err := json.Marshal(record.Classification)
	if err != nil {
		return fmt.Errorf("failed to marshal classification: %w", err)
	}
	featuresJSON, err := json.Marshal(record.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}
	candidatesJSON, err := json.Marshal(record.Candidates)
	if err != nil {
		return fmt.Errorf("failed to marshal candidates: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		record.ID,
		record.Prompt,
		classificationJSON,
		featuresJSON,
		candidatesJSON,
		record.SelectedModel,
		record.LatencyMS,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert decision record: %w", err)
	}

	return nil
}

// GetByID retrieves a decision record by ID
func (r *DecisionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DecisionRecord, error) {
	query := `
		SELECT id, prompt, classification, features, candidates, selected_model, latency_ms, created_at, outcome
		FROM decision_records
		WHERE id = $1
	`

	return r.scanRecord(r.db.QueryRowContext(ctx, query, id))
}

// SetOutcome back-fills the outcome exactly once. The outcome-is-null
// guard makes a second write affect zero rows.
func (r *DecisionRepository) SetOutcome(ctx context.Context, id uuid.UUID, outcome models.DecisionOutcome) error {
	query := `
		UPDATE decision_records
		SET outcome = $2
		WHERE id = $1 AND outcome IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, string(outcome))
	if err != nil {
		return fmt.Errorf("failed to set decision outcome: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check outcome update result: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing record from a second outcome write
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return services.ErrOutcomeAlreadySet
	}

	r.logger.Debug("decision outcome recorded",
		zap.String("id", id.String()),
		zap.String("outcome", string(outcome)))
	return nil
}

// ListRecent retrieves the most recent decision records
func (r *DecisionRepository) ListRecent(ctx context.Context, limit int) ([]*models.DecisionRecord, error) {
	query := `
		SELECT id, prompt, classification, features, candidates, selected_model, latency_ms, created_at, outcome
		FROM decision_records
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list decision records: %w", err)
	}
	defer rows.Close()

	var records []*models.DecisionRecord
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// scanRecord scans one decision record row
func (r *DecisionRepository) scanRecord(row rowScanner) (*models.DecisionRecord, error) {
	record := &models.DecisionRecord{}
	var classificationJSON, featuresJSON, candidatesJSON []byte
	var outcome sql.NullString

	err := row.Scan(
		&record.ID,
		&record.Prompt,
		&classificationJSON,
		&featuresJSON,
		&candidatesJSON,
		&record.SelectedModel,
		&record.LatencyMS,
		&record.CreatedAt,
		&outcome,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, services.ErrDecisionNotFound
		}
		return nil, fmt.Errorf("failed to scan decision record: %w", err)
	}

	if err := json.Unmarshal(classificationJSON, &record.Classification); err != nil {
		return nil, fmt.Errorf("failed to unmarshal classification: %w", err)
	}
	if err := json.Unmarshal(featuresJSON, &record.Features); err != nil {
		return nil, fmt.Errorf("failed to unmarshal features: %w", err)
	}
	if err := json.Unmarshal(candidatesJSON, &record.Candidates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal candidates: %w", err)
	}

	if outcome.Valid {
		o := models.DecisionOutcome(outcome.String)
		record.Outcome = &o
	}

	return record, nil
}
