package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/internal/core/service/mocks"
	"github.com/orchestrix/tracksync/internal/envelope"
	"github.com/orchestrix/tracksync/internal/extract"
	"github.com/orchestrix/tracksync/pkg/credcipher"
)

func newTestHandler(t *testing.T) (*ExtractionHandler, *mocks.MockJobScheduleRepository, *mocks.MockIntegrationRepository, *mocks.MockProviderClient, *domain.JobSchedule, *domain.Integration) {
	t.Helper()
	cipher, err := credcipher.New([]byte("01234567890123456789012345678901"))
	require.NoError(t, err)

	encrypted, err := cipher.Encrypt(domain.Credentials{Username: "bot", Token: "secret"})
	require.NoError(t, err)

	tenantID := uuid.New()
	integrationID := uuid.New()
	scheduleID := uuid.New()

	schedule := &domain.JobSchedule{
		ID: scheduleID, TenantID: tenantID, IntegrationID: integrationID,
		JobName: string(port.ExecutionModeIssueTypes), Status: domain.JobScheduleRunning, ExecutionOrder: 1,
	}
	integration := &domain.Integration{ID: integrationID, TenantID: tenantID, Provider: "jira", EncryptedCreds: encrypted, BaseURL: "https://example.atlassian.net"}

	schedules := mocks.NewMockJobScheduleRepository()
	schedules.AddJobSchedule(schedule)
	integrations := mocks.NewMockIntegrationRepository()
	integrations.AddIntegration(integration)
	tenants := mocks.NewMockTenantRepository()
	tenants.AddTenant(&domain.Tenant{ID: tenantID, Tier: domain.TierBasic, Active: true})
	workItems := mocks.NewMockWorkItemRepository()
	providerClient := &mocks.MockProviderClient{}
	rawRepo := mocks.NewMockRawExtractionRepository()
	publisher := mocks.NewMockQueuePublisher()
	extractor := extract.New(providerClient, rawRepo, publisher)
	executor := mocks.NewMockSyncCycleExecutor()

	h := NewExtractionHandler(schedules, integrations, tenants, workItems, cipher, extractor, executor, nil, nil)
	return h, schedules, integrations, providerClient, schedule, integration
}

func TestExtractionHandler_Handle_MarksFinishedAndAdvancesCycle(t *testing.T) {
	h, schedules, _, _, schedule, integration := newTestHandler(t)
	ctx := context.Background()

	env := &envelope.Envelope{
		TenantID: schedule.TenantID, IntegrationID: schedule.IntegrationID, JobID: schedule.ID,
		Token: "tok", Type: string(port.ExecutionModeIssueTypes), Provider: integration.Provider,
		FirstItem: true, LastItem: true,
	}

	err := h.Handle(ctx, domain.TierBasic, env)
	require.NoError(t, err)

	updated, findErr := schedules.FindByID(ctx, schedule.ID)
	require.NoError(t, findErr)
	assert.Equal(t, domain.JobScheduleReady, updated.Status)
	assert.NotNil(t, updated.LastSuccessAt)
}

func TestExtractionHandler_Handle_UnrecognizedJobNameIsTerminal(t *testing.T) {
	h, schedules, _, _, schedule, integration := newTestHandler(t)
	ctx := context.Background()

	env := &envelope.Envelope{
		TenantID: schedule.TenantID, IntegrationID: schedule.IntegrationID, JobID: schedule.ID,
		Token: "tok", Type: "not_a_real_job", Provider: integration.Provider,
		FirstItem: true, LastItem: true, RetryCount: maxRetries,
	}

	err := h.Handle(ctx, domain.TierBasic, env)
	require.Error(t, err)

	updated, findErr := schedules.FindByID(ctx, schedule.ID)
	require.NoError(t, findErr)
	assert.Equal(t, domain.JobScheduleFailed, updated.Status)
	assert.NotEmpty(t, updated.ErrorMessage)
}

func TestExtractionHandler_Handle_BelowRetryThresholdLeavesScheduleAlone(t *testing.T) {
	h, schedules, _, _, schedule, integration := newTestHandler(t)
	ctx := context.Background()

	env := &envelope.Envelope{
		TenantID: schedule.TenantID, IntegrationID: schedule.IntegrationID, JobID: schedule.ID,
		Token: "tok", Type: "not_a_real_job", Provider: integration.Provider,
		FirstItem: true, LastItem: true, RetryCount: 0,
	}

	err := h.Handle(ctx, domain.TierBasic, env)
	require.Error(t, err)

	updated, findErr := schedules.FindByID(ctx, schedule.ID)
	require.NoError(t, findErr)
	assert.Equal(t, domain.JobScheduleRunning, updated.Status, "schedule must stay RUNNING so the pool's own retry can re-attempt it")
}

func TestExtractionHandler_Handle_RateLimitMarksScheduleRateLimited(t *testing.T) {
	h, schedules, _, providerClient, schedule, integration := newTestHandler(t)
	ctx := context.Background()
	schedule.JobName = string(port.ExecutionModeAll)

	resetAt := time.Now().Add(10 * time.Minute)
	providerClient.SearchIssuesFn = func(ctx context.Context, creds domain.Credentials, baseURL, jql, pageToken string, maxResults int) (*port.ProviderPage, error) {
		return nil, &port.RateLimitError{ResetAt: resetAt}
	}

	env := &envelope.Envelope{
		TenantID: schedule.TenantID, IntegrationID: schedule.IntegrationID, JobID: schedule.ID,
		Token: "tok", Type: string(port.ExecutionModeAll), Provider: integration.Provider,
		FirstItem: true, LastItem: true,
	}

	err := h.Handle(ctx, domain.TierBasic, env)
	require.Error(t, err)

	updated, findErr := schedules.FindByID(ctx, schedule.ID)
	require.NoError(t, findErr)
	assert.Equal(t, domain.JobScheduleRateLimited, updated.Status)
	assert.WithinDuration(t, resetAt, *updated.NextRun, time.Second)
}

func TestExtractionHandler_WaitForDevelopmentFlags_NoIssuesReturnsNil(t *testing.T) {
	h, _, _, _, _, _ := newTestHandler(t)
	out := h.waitForDevelopmentFlags(context.Background(), uuid.New(), nil)
	assert.Nil(t, out)
}
