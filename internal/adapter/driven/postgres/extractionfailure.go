package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orchestrix/tracksync/internal/core/domain"
)

// ExtractionFailureRepository implements port.ExtractionFailureRepository:
// the dead-letter store (C12) recording messages that exhausted their
// retry budget.
type ExtractionFailureRepository struct {
	pool *pgxpool.Pool
}

// NewExtractionFailureRepository creates a new extraction failure repository.
func NewExtractionFailureRepository(pool *pgxpool.Pool) *ExtractionFailureRepository {
	return &ExtractionFailureRepository{pool: pool}
}

// Save inserts one dead-letter row.
func (r *ExtractionFailureRepository) Save(ctx context.Context, f *domain.ExtractionFailure) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO extraction_failures (tenant_id, integration_id, extraction_type, original_message, error_message, failed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		f.TenantID, f.IntegrationID, f.ExtractionType, f.OriginalMessage, f.ErrorMessage, f.FailedAt)
	return err
}

// FindByTenant lists paginated dead-letter rows for a tenant, newest first.
func (r *ExtractionFailureRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.ExtractionFailure, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tenant_id, integration_id, extraction_type, original_message, error_message, failed_at
		  FROM extraction_failures
		 WHERE tenant_id = $1
		 ORDER BY failed_at DESC
		 LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ExtractionFailure
	for rows.Next() {
		f := &domain.ExtractionFailure{}
		if err := rows.Scan(&f.TenantID, &f.IntegrationID, &f.ExtractionType, &f.OriginalMessage, &f.ErrorMessage, &f.FailedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
