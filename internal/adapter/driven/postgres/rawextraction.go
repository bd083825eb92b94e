package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orchestrix/tracksync/internal/core/domain"
)

// RawExtractionRepository implements port.RawExtractionRepository: the
// append-only, write-once staging row an extractor writes before transform
// (spec.md §3). Status transitions exactly once: pending -> completed, or
// pending -> failed.
type RawExtractionRepository struct {
	pool *pgxpool.Pool
}

// NewRawExtractionRepository creates a new raw extraction repository.
func NewRawExtractionRepository(pool *pgxpool.Pool) *RawExtractionRepository {
	return &RawExtractionRepository{pool: pool}
}

// FindByID loads a raw extraction row by id.
func (r *RawExtractionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.RawExtractionData, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, integration_id, type, raw_data, status, error_details
		  FROM raw_extraction_data WHERE id = $1`, id)

	var d domain.RawExtractionData
	var typ, status string
	if err := row.Scan(&d.ID, &d.TenantID, &d.IntegrationID, &typ, &d.RawData, &status, &d.ErrorDetails); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRawExtractionNotFound
		}
		return nil, err
	}
	d.Type = domain.RawExtractionType(typ)
	d.Status = domain.RawExtractionStatus(status)
	return &d, nil
}

// Save inserts a new pending raw extraction row.
func (r *RawExtractionRepository) Save(ctx context.Context, row *domain.RawExtractionData) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.Status == "" {
		row.Status = domain.RawExtractionPending
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO raw_extraction_data (id, tenant_id, integration_id, type, raw_data, status, error_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		row.ID, row.TenantID, row.IntegrationID, string(row.Type), row.RawData, string(row.Status), row.ErrorDetails)
	return err
}

// MarkCompleted transitions a pending row to completed. Enforces the
// exactly-once transition by conditioning the UPDATE on status = 'pending'.
func (r *RawExtractionRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE raw_extraction_data SET status = 'completed' WHERE id = $1 AND status = 'pending'`, id)
	return err
}

// MarkFailed transitions a pending row to failed with the given detail.
func (r *RawExtractionRepository) MarkFailed(ctx context.Context, id uuid.UUID, detail string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE raw_extraction_data SET status = 'failed', error_details = $2 WHERE id = $1 AND status = 'pending'`,
		id, detail)
	return err
}
