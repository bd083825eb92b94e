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

// TenantContextSetter implements port.TenantContextSetter
type TenantContextSetter struct {
	pool *pgxpool.Pool
}

// NewTenantContextSetter creates a new tenant context setter
func NewTenantContextSetter(pool *pgxpool.Pool) *TenantContextSetter {
	return &TenantContextSetter{pool: pool}
}

// SetTenantContext sets the tenant context for RLS
func (s *TenantContextSetter) SetTenantContext(ctx context.Context, tenantID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		"SELECT set_config('app.current_tenant_id', $1, true)",
		tenantID.String())
	return err
}

// TenantRepository implements port.TenantRepository: the tier lookup the
// extraction worker pool needs to know which shared pool a tenant's
// messages already landed on (spec.md §3).
type TenantRepository struct {
	queries *db.Queries
}

// NewTenantRepository creates a new tenant repository.
func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{queries: db.New(pool)}
}

// FindByID returns a tenant by id.
func (r *TenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	row, err := r.queries.GetTenant(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}
	return &domain.Tenant{ID: row.ID, Tier: domain.Tier(row.Tier), Active: row.Active}, nil
}

// Save upserts a tenant's tier/active flag.
func (r *TenantRepository) Save(ctx context.Context, tenant *domain.Tenant) error {
	row, err := r.queries.UpsertTenant(ctx, db.UpsertTenantParams{
		ID:     tenant.ID,
		Tier:   string(tenant.Tier),
		Active: tenant.Active,
	})
	if err != nil {
		return err
	}
	tenant.ID = row.ID
	tenant.Tier = domain.Tier(row.Tier)
	tenant.Active = row.Active
	return nil
}
