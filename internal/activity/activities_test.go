package activity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/service/mocks"
)

func TestPickNextJob_ReturnsEligibleSchedule(t *testing.T) {
	schedules := mocks.NewMockJobScheduleRepository()
	integrations := mocks.NewMockIntegrationRepository()
	tenants := mocks.NewMockTenantRepository()
	publisher := mocks.NewMockQueuePublisher()

	integrationID := uuid.New()
	schedule := &domain.JobSchedule{
		ID: uuid.New(), IntegrationID: integrationID, JobName: "issues",
		Status: domain.JobScheduleReady, ExecutionOrder: 1,
	}
	schedules.AddJobSchedule(schedule)

	a := NewActivities(schedules, integrations, tenants, publisher, nil)
	result, err := a.PickNextJob(context.Background(), integrationID)
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, schedule.ID, result.JobScheduleID)
	assert.Equal(t, "issues", result.JobName)
}

func TestPickNextJob_NoneEligibleReturnsSoonestNextRun(t *testing.T) {
	schedules := mocks.NewMockJobScheduleRepository()
	integrations := mocks.NewMockIntegrationRepository()
	tenants := mocks.NewMockTenantRepository()
	publisher := mocks.NewMockQueuePublisher()

	integrationID := uuid.New()
	soon := time.Now().Add(time.Minute)
	later := time.Now().Add(time.Hour)
	schedules.AddJobSchedule(&domain.JobSchedule{
		ID: uuid.New(), IntegrationID: integrationID, JobName: "issues",
		Status: domain.JobScheduleReady, NextRun: &later,
	})
	schedules.AddJobSchedule(&domain.JobSchedule{
		ID: uuid.New(), IntegrationID: integrationID, JobName: "statuses",
		Status: domain.JobScheduleReady, NextRun: &soon,
	})

	a := NewActivities(schedules, integrations, tenants, publisher, nil)
	result, err := a.PickNextJob(context.Background(), integrationID)
	require.NoError(t, err)
	assert.False(t, result.Found)
	require.NotNil(t, result.NextRun)
	assert.WithinDuration(t, soon, *result.NextRun, time.Second)
}

func TestPublishExtractionJob_MarksRunningAndPublishes(t *testing.T) {
	schedules := mocks.NewMockJobScheduleRepository()
	integrations := mocks.NewMockIntegrationRepository()
	tenants := mocks.NewMockTenantRepository()
	publisher := mocks.NewMockQueuePublisher()

	tenantID, integrationID, scheduleID := uuid.New(), uuid.New(), uuid.New()
	schedules.AddJobSchedule(&domain.JobSchedule{ID: scheduleID, TenantID: tenantID, IntegrationID: integrationID, JobName: "issues", Status: domain.JobScheduleReady})
	integrations.AddIntegration(&domain.Integration{ID: integrationID, TenantID: tenantID, Provider: "jira"})
	tenants.AddTenant(&domain.Tenant{ID: tenantID, Tier: domain.TierPremium, Active: true})

	a := NewActivities(schedules, integrations, tenants, publisher, nil)
	err := a.PublishExtractionJob(context.Background(), PublishExtractionJobInput{
		JobScheduleID: scheduleID, TenantID: tenantID, IntegrationID: integrationID, JobName: "issues",
	})
	require.NoError(t, err)

	updated, _ := schedules.FindByID(context.Background(), scheduleID)
	assert.Equal(t, domain.JobScheduleRunning, updated.Status)
	require.Len(t, publisher.ExtractionJobs, 1)
	assert.Equal(t, scheduleID, publisher.ExtractionJobs[0].JobID)
	assert.Equal(t, "issues", publisher.ExtractionJobs[0].Type)
}

func TestPollJobStatus_ReportsDoneWhenNotRunning(t *testing.T) {
	schedules := mocks.NewMockJobScheduleRepository()
	integrations := mocks.NewMockIntegrationRepository()
	tenants := mocks.NewMockTenantRepository()
	publisher := mocks.NewMockQueuePublisher()

	scheduleID := uuid.New()
	schedules.AddJobSchedule(&domain.JobSchedule{ID: scheduleID, Status: domain.JobScheduleReady})

	a := NewActivities(schedules, integrations, tenants, publisher, nil)
	result, err := a.PollJobStatus(context.Background(), scheduleID)
	require.NoError(t, err)
	assert.True(t, result.Done)

	schedules.AddJobSchedule(&domain.JobSchedule{ID: scheduleID, Status: domain.JobScheduleRunning})
	result, err = a.PollJobStatus(context.Background(), scheduleID)
	require.NoError(t, err)
	assert.False(t, result.Done)
}
