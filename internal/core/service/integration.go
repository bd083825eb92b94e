package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/pkg/credcipher"
	"github.com/orchestrix/tracksync/pkg/validation"
)

// IntegrationService implements port.IntegrationService, encrypting
// provider credentials at rest with pkg/credcipher.
type IntegrationService struct {
	integrationRepo port.IntegrationRepository
	cipher          *credcipher.Cipher
	auditService    port.AuditService
	tenantSetter    port.TenantContextSetter
}

// NewIntegrationService creates a new integration service.
func NewIntegrationService(
	integrationRepo port.IntegrationRepository,
	cipher *credcipher.Cipher,
	auditService port.AuditService,
	tenantSetter port.TenantContextSetter,
) *IntegrationService {
	return &IntegrationService{
		integrationRepo: integrationRepo,
		cipher:          cipher,
		auditService:    auditService,
		tenantSetter:    tenantSetter,
	}
}

// List returns paginated integrations for a tenant.
func (s *IntegrationService) List(ctx context.Context, tenantID uuid.UUID, page, limit int) (*port.IntegrationListResult, error) {
	if err := s.tenantSetter.SetTenantContext(ctx, tenantID); err != nil {
		return nil, err
	}

	offset := (page - 1) * limit

	integrations, err := s.integrationRepo.FindByTenant(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}

	total, err := s.integrationRepo.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &port.IntegrationListResult{
		Integrations: integrations,
		Total:        total,
		Page:         page,
		Limit:        limit,
	}, nil
}

// GetByID returns an integration by ID.
func (s *IntegrationService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Integration, error) {
	return s.integrationRepo.FindByID(ctx, id)
}

// Create creates a new integration, encrypting its credentials.
func (s *IntegrationService) Create(ctx context.Context, input port.CreateIntegrationInput) (*domain.Integration, error) {
	if err := validation.Validate(func(v *validation.Validator) {
		v.Enum("provider", input.Provider, []string{"jira", "github"})
		v.BaseURL("base_url", input.BaseURL)
		v.Required("credentials.username", input.Credentials.Username)
		v.Required("credentials.token", input.Credentials.Token)
	}); err != nil {
		return nil, err
	}

	if err := s.tenantSetter.SetTenantContext(ctx, input.TenantID); err != nil {
		return nil, err
	}

	encrypted, err := s.cipher.Encrypt(input.Credentials)
	if err != nil {
		return nil, err
	}

	integration := &domain.Integration{
		TenantID:         input.TenantID,
		Provider:         input.Provider,
		EncryptedCreds:   encrypted,
		BaseURL:          input.BaseURL,
		BaseSearchFilter: input.BaseSearchFilter,
		Active:           true,
	}

	if err := s.integrationRepo.Save(ctx, integration); err != nil {
		return nil, err
	}

	s.logAudit(ctx, input.TenantID, domain.AuditEventIntegrationCreated, integration.ID)

	return integration, nil
}

// Update edits an integration's URL, search filter, credentials, or active
// flag. Credential rotation re-encrypts under the current key.
func (s *IntegrationService) Update(ctx context.Context, id uuid.UUID, input port.UpdateIntegrationInput) (*domain.Integration, error) {
	integration, err := s.integrationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Credentials != nil {
		encrypted, err := s.cipher.Encrypt(*input.Credentials)
		if err != nil {
			return nil, err
		}
		integration.EncryptedCreds = encrypted
	}
	if input.BaseURL != nil {
		integration.BaseURL = *input.BaseURL
	}
	if input.BaseSearchFilter != nil {
		integration.BaseSearchFilter = *input.BaseSearchFilter
	}
	if input.Active != nil {
		integration.Active = *input.Active
	}

	if err := s.integrationRepo.Update(ctx, integration); err != nil {
		return nil, err
	}

	s.logAudit(ctx, integration.TenantID, domain.AuditEventIntegrationUpdated, integration.ID)

	return integration, nil
}

// Delete soft-deletes an integration.
func (s *IntegrationService) Delete(ctx context.Context, id uuid.UUID) error {
	integration, err := s.integrationRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.integrationRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logAudit(ctx, integration.TenantID, domain.AuditEventIntegrationDeleted, integration.ID)

	return nil
}

func (s *IntegrationService) logAudit(ctx context.Context, tenantID uuid.UUID, eventType string, resourceID uuid.UUID) {
	if s.auditService == nil {
		return
	}
	log := domain.NewAuditLog(tenantID, nil, eventType, domain.ResourceTypeIntegration, &resourceID, domain.ActionUpdate)
	s.auditService.Log(ctx, log)
}
