package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/db"
)

// IntegrationRepository implements port.IntegrationRepository
type IntegrationRepository struct {
	pool    *pgxpool.Pool
	queries *db.Queries
}

// NewIntegrationRepository creates a new integration repository
func NewIntegrationRepository(pool *pgxpool.Pool) *IntegrationRepository {
	return &IntegrationRepository{
		pool:    pool,
		queries: db.New(pool),
	}
}

// FindByID finds an active integration by ID
func (r *IntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Integration, error) {
	row, err := r.queries.GetIntegration(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIntegrationNotFound
		}
		return nil, err
	}
	return toIntegrationDomain(row), nil
}

// FindByTenant lists active integrations for a tenant with pagination
func (r *IntegrationRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.Integration, error) {
	rows, err := r.queries.ListIntegrations(ctx, db.ListIntegrationsParams{
		TenantID: tenantID,
		Limit:    int32(limit),
		Offset:   int32(offset),
	})
	if err != nil {
		return nil, err
	}
	integrations := make([]*domain.Integration, len(rows))
	for i, row := range rows {
		integrations[i] = toIntegrationDomain(row)
	}
	return integrations, nil
}

// CountByTenant counts active integrations for a tenant
func (r *IntegrationRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return r.queries.CountIntegrations(ctx, tenantID)
}

// Save inserts a new integration
func (r *IntegrationRepository) Save(ctx context.Context, integration *domain.Integration) error {
	row, err := r.queries.CreateIntegration(ctx, db.CreateIntegrationParams{
		TenantID:         integration.TenantID,
		Provider:         integration.Provider,
		EncryptedCreds:   integration.EncryptedCreds,
		BaseURL:          integration.BaseURL,
		BaseSearchFilter: integration.BaseSearchFilter,
	})
	if err != nil {
		return err
	}
	*integration = *toIntegrationDomain(row)
	return nil
}

// Update persists changes to an integration's URL, filter, credentials, or
// active flag.
func (r *IntegrationRepository) Update(ctx context.Context, integration *domain.Integration) error {
	row, err := r.queries.UpdateIntegration(ctx, db.UpdateIntegrationParams{
		ID:               integration.ID,
		EncryptedCreds:   integration.EncryptedCreds,
		BaseURL:          &integration.BaseURL,
		BaseSearchFilter: &integration.BaseSearchFilter,
		Active:           &integration.Active,
	})
	if err != nil {
		return err
	}
	*integration = *toIntegrationDomain(row)
	return nil
}

// Delete soft-deletes an integration (active = false).
func (r *IntegrationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.queries.DeleteIntegration(ctx, id)
}

func toIntegrationDomain(row db.Integration) *domain.Integration {
	return &domain.Integration{
		ID:               row.ID,
		TenantID:         row.TenantID,
		Provider:         row.Provider,
		EncryptedCreds:   row.EncryptedCreds,
		BaseURL:          row.BaseURL,
		BaseSearchFilter: row.BaseSearchFilter,
		Active:           row.Active,
	}
}
