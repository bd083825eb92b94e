package workflowmetrics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/pkg/util"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return tm
}

// buildCategoryMap maps fixed status ids 1 (to do), 3 (in progress), 5 (done)
// to their categories, mirroring the category map used by S1/S2.
func buildCategoryMap(t *testing.T) (map[string]uuid.UUID, map[uuid.UUID]domain.StatusCategory) {
	t.Helper()
	ids := map[string]uuid.UUID{
		"1": uuid.New(),
		"3": uuid.New(),
		"5": uuid.New(),
	}
	cats := map[uuid.UUID]domain.StatusCategory{
		ids["1"]: domain.StatusCategoryToDo,
		ids["3"]: domain.StatusCategoryInProgress,
		ids["5"]: domain.StatusCategoryDone,
	}
	return ids, cats
}

// TestCompute_S1_FreshIssueTwoTransitions mirrors spec scenario S1.
func TestCompute_S1_FreshIssueTwoTransitions(t *testing.T) {
	ids, cats := buildCategoryMap(t)
	created := mustParse(t, "2024-01-01T10:00:00Z")
	h1 := mustParse(t, "2024-01-02T10:00:00Z")
	h2 := mustParse(t, "2024-01-03T10:00:00Z")

	chain := []domain.Changelog{
		{
			ExternalID:           "h1",
			FromStatusID:         util.Ptr(ids["1"]),
			ToStatusID:           util.Ptr(ids["3"]),
			TransitionStartDate:  created,
			TransitionChangeDate: h1,
			TimeInStatusSeconds:  h1.Sub(created).Seconds(),
		},
		{
			ExternalID:           "h2",
			FromStatusID:         util.Ptr(ids["3"]),
			ToStatusID:           util.Ptr(ids["5"]),
			TransitionStartDate:  h1,
			TransitionChangeDate: h2,
			TimeInStatusSeconds:  h2.Sub(h1).Seconds(),
		},
	}

	res := Compute(chain, cats)

	assert.Nil(t, res.WorkFirstCommittedAt)
	require.NotNil(t, res.WorkFirstStartedAt)
	assert.True(t, res.WorkFirstStartedAt.Equal(h1))
	require.NotNil(t, res.WorkLastStartedAt)
	assert.True(t, res.WorkLastStartedAt.Equal(h1))
	require.NotNil(t, res.WorkFirstCompletedAt)
	assert.True(t, res.WorkFirstCompletedAt.Equal(h2))
	require.NotNil(t, res.WorkLastCompletedAt)
	assert.True(t, res.WorkLastCompletedAt.Equal(h2))

	assert.Equal(t, 1, res.TotalWorkStarts)
	assert.Equal(t, 1, res.TotalCompletions)
	assert.Equal(t, 0, res.TotalBacklogReturns)
	assert.InDelta(t, 86400, res.TotalWorkTimeSeconds, 0.001)
	assert.InDelta(t, 0, res.TotalReviewTimeSeconds, 0.001)
	assert.InDelta(t, 86400, res.TotalCycleTimeSeconds, 0.001)
	assert.InDelta(t, 0, res.TotalLeadTimeSeconds, 0.001)
	assert.Equal(t, 0, res.WorkflowComplexityScore)
	assert.False(t, res.ReworkIndicator)
	assert.False(t, res.DirectCompletion)
}

// TestCompute_S2_Rework mirrors spec scenario S2: S1's chain plus a
// backward-then-forward rework pair.
func TestCompute_S2_Rework(t *testing.T) {
	ids, cats := buildCategoryMap(t)
	created := mustParse(t, "2024-01-01T10:00:00Z")
	h1 := mustParse(t, "2024-01-02T10:00:00Z")
	h2 := mustParse(t, "2024-01-03T10:00:00Z")
	h3 := mustParse(t, "2024-01-04T10:00:00Z")
	h4 := mustParse(t, "2024-01-05T10:00:00Z")

	chain := []domain.Changelog{
		{ExternalID: "h1", ToStatusID: util.Ptr(ids["3"]), TransitionStartDate: created, TransitionChangeDate: h1, TimeInStatusSeconds: h1.Sub(created).Seconds()},
		{ExternalID: "h2", ToStatusID: util.Ptr(ids["5"]), TransitionStartDate: h1, TransitionChangeDate: h2, TimeInStatusSeconds: h2.Sub(h1).Seconds()},
		{ExternalID: "h3", ToStatusID: util.Ptr(ids["3"]), TransitionStartDate: h2, TransitionChangeDate: h3, TimeInStatusSeconds: h3.Sub(h2).Seconds()},
		{ExternalID: "h4", ToStatusID: util.Ptr(ids["5"]), TransitionStartDate: h3, TransitionChangeDate: h4, TimeInStatusSeconds: h4.Sub(h3).Seconds()},
	}

	res := Compute(chain, cats)

	assert.Equal(t, 2, res.TotalWorkStarts)
	assert.Equal(t, 2, res.TotalCompletions)
	assert.True(t, res.ReworkIndicator)
	assert.Equal(t, 1, res.WorkflowComplexityScore)
	require.NotNil(t, res.WorkFirstStartedAt)
	assert.True(t, res.WorkFirstStartedAt.Equal(h1))
	require.NotNil(t, res.WorkLastStartedAt)
	assert.True(t, res.WorkLastStartedAt.Equal(h3))
	require.NotNil(t, res.WorkLastCompletedAt)
	assert.True(t, res.WorkLastCompletedAt.Equal(h4))
}

func TestCompute_EmptyChain(t *testing.T) {
	res := Compute(nil, map[uuid.UUID]domain.StatusCategory{})
	assert.Equal(t, Result{}, res)
}

func TestCompute_DirectCompletion(t *testing.T) {
	ids, cats := buildCategoryMap(t)
	created := mustParse(t, "2024-01-01T10:00:00Z")
	done := mustParse(t, "2024-01-01T11:00:00Z")

	chain := []domain.Changelog{
		{ExternalID: "h1", ToStatusID: util.Ptr(ids["5"]), TransitionStartDate: created, TransitionChangeDate: done, TimeInStatusSeconds: done.Sub(created).Seconds()},
	}

	res := Compute(chain, cats)
	assert.True(t, res.DirectCompletion)
	assert.Equal(t, 1, res.TotalCompletions)
	assert.Equal(t, 0, res.TotalWorkStarts)
}

func TestCompute_UnmappedStatusIgnored(t *testing.T) {
	_, cats := buildCategoryMap(t)
	unmapped := uuid.New()
	created := mustParse(t, "2024-01-01T10:00:00Z")
	changed := mustParse(t, "2024-01-01T11:00:00Z")

	chain := []domain.Changelog{
		{ExternalID: "h1", ToStatusID: util.Ptr(unmapped), TransitionStartDate: created, TransitionChangeDate: changed, TimeInStatusSeconds: 3600},
	}

	res := Compute(chain, cats)
	assert.Equal(t, Result{}, res)
}
