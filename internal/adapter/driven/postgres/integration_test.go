//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	pgadapter "github.com/orchestrix/tracksync/internal/adapter/driven/postgres"
	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/db"
)

// TestContext holds the test database and cleanup functions
type TestContext struct {
	Pool      *pgxpool.Pool
	Container testcontainers.Container
	Ctx       context.Context
}

// setupTestDB creates a test database container and applies the real
// schema migrations, so the tests exercise exactly what production runs.
func setupTestDB(t *testing.T) *TestContext {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("tracksync_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, runMigrations(connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	return &TestContext{
		Pool:      pool,
		Container: container,
		Ctx:       ctx,
	}
}

// runMigrations applies the embedded goose migrations, the same ones
// tracksyncctl migrate up runs.
func runMigrations(connStr string) error {
	sqldb, err := sql.Open("pgx", connStr)
	if err != nil {
		return err
	}
	defer sqldb.Close()

	goose.SetBaseFS(db.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(sqldb, "migrations")
}

// cleanup closes connections and terminates container
func (tc *TestContext) cleanup(t *testing.T) {
	tc.Pool.Close()
	if err := tc.Container.Terminate(tc.Ctx); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}

// createTestTenant creates a tenant for testing
func createTestTenant(ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	tenantID := uuid.New()
	_, _ = pool.Exec(ctx, "INSERT INTO tenants (id, tier, active) VALUES ($1, $2, true)", tenantID, "basic")
	return tenantID
}

// createTestIntegration creates an integration for testing.
func createTestIntegration(ctx context.Context, pool *pgxpool.Pool, tenantID uuid.UUID) uuid.UUID {
	integrationID := uuid.New()
	_, _ = pool.Exec(ctx,
		"INSERT INTO integrations (id, tenant_id, provider, encrypted_creds, base_url, active) VALUES ($1, $2, $3, $4, $5, $6)",
		integrationID, tenantID, "jira", []byte("sealed"), "https://example.atlassian.net", true)
	return integrationID
}

func TestJobScheduleRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := setupTestDB(t)
	defer tc.cleanup(t)

	repo := pgadapter.NewJobScheduleRepository(tc.Pool)
	tenantID := createTestTenant(tc.Ctx, tc.Pool)
	integrationID := createTestIntegration(tc.Ctx, tc.Pool, tenantID)

	t.Run("Create and Find JobSchedule", func(t *testing.T) {
		js := &domain.JobSchedule{
			TenantID:       tenantID,
			IntegrationID:  integrationID,
			JobName:        "issues",
			ExecutionOrder: 1,
		}

		err := repo.Save(tc.Ctx, js)
		require.NoError(t, err)

		found, err := repo.FindByID(tc.Ctx, js.ID)
		require.NoError(t, err)
		assert.Equal(t, js.JobName, found.JobName)
		assert.Equal(t, domain.JobScheduleReady, found.Status)
	})

	t.Run("List JobSchedules by Tenant", func(t *testing.T) {
		schedules, err := repo.FindByTenant(tc.Ctx, tenantID, 10, 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(schedules), 1)
	})

	t.Run("Count JobSchedules by Tenant", func(t *testing.T) {
		count, err := repo.CountByTenant(tc.Ctx, tenantID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, int64(1))
	})

	t.Run("NextRunnable picks lowest eligible execution order", func(t *testing.T) {
		second := &domain.JobSchedule{
			TenantID: tenantID, IntegrationID: integrationID,
			JobName: "statuses", ExecutionOrder: 2,
		}
		require.NoError(t, repo.Save(tc.Ctx, second))

		next, err := repo.NextRunnable(tc.Ctx, integrationID, time.Now().Add(time.Minute))
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, "issues", next.JobName)
	})

	t.Run("Update JobSchedule", func(t *testing.T) {
		schedules, err := repo.FindByTenant(tc.Ctx, tenantID, 1, 0)
		require.NoError(t, err)
		require.Len(t, schedules, 1)

		js := schedules[0]
		js.MarkRunning(time.Now())

		err = repo.Update(tc.Ctx, js)
		require.NoError(t, err)

		found, err := repo.FindByID(tc.Ctx, js.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobScheduleRunning, found.Status)
	})
}

func TestSprintRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := setupTestDB(t)
	defer tc.cleanup(t)

	tenantID := createTestTenant(tc.Ctx, tc.Pool)
	integrationID := createTestIntegration(tc.Ctx, tc.Pool, tenantID)
	sprintRepo := pgadapter.NewSprintRepository(tc.Pool)
	workItemRepo := pgadapter.NewWorkItemRepository(tc.Pool)

	newSprint := func() *domain.Sprint {
		return &domain.Sprint{
			TenantID: tenantID, IntegrationID: integrationID,
			ExternalID: "S1", BoardID: "9", Name: "Sprint 1", State: "active", Active: true,
		}
	}

	t.Run("Concurrent upsert converges to one row", func(t *testing.T) {
		ids1, err := sprintRepo.UpsertSprints(tc.Ctx, []*domain.Sprint{newSprint()})
		require.NoError(t, err)
		ids2, err := sprintRepo.UpsertSprints(tc.Ctx, []*domain.Sprint{newSprint()})
		require.NoError(t, err)
		assert.Equal(t, ids1["S1"], ids2["S1"])

		var count int
		require.NoError(t, tc.Pool.QueryRow(tc.Ctx, "SELECT count(*) FROM sprints").Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("Duplicate work item edges are conflict-ignored", func(t *testing.T) {
		wi := &domain.WorkItem{
			ID: uuid.New(), TenantID: tenantID, IntegrationID: integrationID,
			ExternalID: "100", Key: "P-1", Created: time.Now().UTC(), Active: true,
		}
		require.NoError(t, workItemRepo.BulkInsert(tc.Ctx, []*domain.WorkItem{wi}))

		ids, err := sprintRepo.UpsertSprints(tc.Ctx, []*domain.Sprint{newSprint()})
		require.NoError(t, err)

		added := time.Now().UTC().Truncate(time.Second)
		edge := domain.WorkItemSprint{
			WorkItemID: wi.ID, SprintID: ids["S1"], TenantID: tenantID, AddedDate: added, Active: true,
		}
		require.NoError(t, sprintRepo.LinkWorkItemSprints(tc.Ctx, []domain.WorkItemSprint{edge}))
		require.NoError(t, sprintRepo.LinkWorkItemSprints(tc.Ctx, []domain.WorkItemSprint{edge}))

		var count int
		require.NoError(t, tc.Pool.QueryRow(tc.Ctx, "SELECT count(*) FROM work_items_sprints").Scan(&count))
		assert.Equal(t, 1, count)
	})
}

func TestChangelogRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := setupTestDB(t)
	defer tc.cleanup(t)

	tenantID := createTestTenant(tc.Ctx, tc.Pool)
	integrationID := createTestIntegration(tc.Ctx, tc.Pool, tenantID)
	workItemRepo := pgadapter.NewWorkItemRepository(tc.Pool)
	changelogRepo := pgadapter.NewChangelogRepository(tc.Pool)

	created := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	wi := &domain.WorkItem{
		ID: uuid.New(), TenantID: tenantID, IntegrationID: integrationID,
		ExternalID: "100", Key: "P-1", Created: created, Active: true,
	}
	require.NoError(t, workItemRepo.BulkInsert(tc.Ctx, []*domain.WorkItem{wi}))

	rows := []*domain.Changelog{
		{
			ID: uuid.New(), TenantID: tenantID, IntegrationID: integrationID, WorkItemID: wi.ID,
			ExternalID: "h1", TransitionStartDate: created, TransitionChangeDate: created.Add(24 * time.Hour),
			TimeInStatusSeconds: 86400, ChangedBy: "A", Active: true,
		},
		{
			ID: uuid.New(), TenantID: tenantID, IntegrationID: integrationID, WorkItemID: wi.ID,
			ExternalID: "h2", TransitionStartDate: created.Add(24 * time.Hour), TransitionChangeDate: created.Add(48 * time.Hour),
			TimeInStatusSeconds: 86400, ChangedBy: "B", Active: true,
		},
	}
	require.NoError(t, changelogRepo.BulkInsert(tc.Ctx, rows))

	t.Run("ChainForWorkItem is chronological and contiguous", func(t *testing.T) {
		chain, err := changelogRepo.ChainForWorkItem(tc.Ctx, wi.ID)
		require.NoError(t, err)
		require.Len(t, chain, 2)
		assert.Equal(t, "h1", chain[0].ExternalID)
		assert.True(t, chain[0].TransitionStartDate.Equal(created))
		assert.True(t, chain[1].TransitionStartDate.Equal(chain[0].TransitionChangeDate))
	})

	t.Run("ExistingExternalIDs dedups re-fetched histories", func(t *testing.T) {
		existing, err := changelogRepo.ExistingExternalIDs(tc.Ctx, wi.ID, []string{"h1", "h2", "h3"})
		require.NoError(t, err)
		assert.True(t, existing["h1"])
		assert.True(t, existing["h2"])
		assert.False(t, existing["h3"])
	})
}

func TestAlertRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := setupTestDB(t)
	defer tc.cleanup(t)

	repo := pgadapter.NewAlertRepository(tc.Pool)
	tenantID := createTestTenant(tc.Ctx, tc.Pool)

	t.Run("Create and Find Alert", func(t *testing.T) {
		alert := &domain.Alert{
			ID:        uuid.New(),
			TenantID:  tenantID,
			Title:     "Test Alert",
			Severity:  domain.AlertSeverityWarning,
			Status:    domain.AlertStatusTriggered,
			CreatedAt: time.Now(),
		}

		err := repo.Save(tc.Ctx, alert)
		require.NoError(t, err)

		found, err := repo.FindByID(tc.Ctx, alert.ID)
		require.NoError(t, err)
		assert.Equal(t, alert.Title, found.Title)
		assert.Equal(t, alert.Severity, found.Severity)
	})

	t.Run("List Alerts by Tenant", func(t *testing.T) {
		alerts, err := repo.FindByTenant(tc.Ctx, tenantID, 10, 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(alerts), 1)
	})
}
