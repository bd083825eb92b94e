// Package workflowmetrics derives per-work-item timing metrics from a
// work item's changelog transition chain. Every function here is a pure
// function of its inputs: no I/O, no clock reads, so it is exercised
// entirely by unit tests against hand-built changelog chains.
package workflowmetrics

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/orchestrix/tracksync/internal/core/domain"
)

// Result carries every derived column described in the workflow metrics
// engine, ready to be written back onto a domain.WorkItem.
type Result struct {
	WorkFirstCommittedAt    *time.Time
	WorkFirstStartedAt      *time.Time
	WorkLastStartedAt       *time.Time
	WorkFirstCompletedAt    *time.Time
	WorkLastCompletedAt     *time.Time
	TotalWorkStarts         int
	TotalCompletions        int
	TotalBacklogReturns     int
	TotalWorkTimeSeconds    float64
	TotalReviewTimeSeconds  float64
	TotalCycleTimeSeconds   float64
	TotalLeadTimeSeconds    float64
	WorkflowComplexityScore int
	ReworkIndicator         bool
	DirectCompletion        bool
}

// Apply writes a Result's fields onto a WorkItem's derived columns.
func (r *Result) Apply(w *domain.WorkItem) {
	w.WorkFirstCommittedAt = r.WorkFirstCommittedAt
	w.WorkFirstStartedAt = r.WorkFirstStartedAt
	w.WorkLastStartedAt = r.WorkLastStartedAt
	w.WorkFirstCompletedAt = r.WorkFirstCompletedAt
	w.WorkLastCompletedAt = r.WorkLastCompletedAt
	w.TotalWorkStarts = r.TotalWorkStarts
	w.TotalCompletions = r.TotalCompletions
	w.TotalBacklogReturns = r.TotalBacklogReturns
	w.TotalWorkTimeSeconds = r.TotalWorkTimeSeconds
	w.TotalReviewTimeSeconds = r.TotalReviewTimeSeconds
	w.TotalCycleTimeSeconds = r.TotalCycleTimeSeconds
	w.TotalLeadTimeSeconds = r.TotalLeadTimeSeconds
	w.WorkflowComplexityScore = r.WorkflowComplexityScore
	w.ReworkIndicator = r.ReworkIndicator
	w.DirectCompletion = r.DirectCompletion
}

// Compute derives Result from a work item's changelog chain (any order;
// this function sorts it ascending by TransitionChangeDate) and the
// status_id -> category map in effect at transform time. A changelog row
// whose ToStatusID is nil or absent from categoryOf contributes to none of
// the category-bucketed milestones or sums, but still counts as a row for
// DirectCompletion's row-count check.
//
// Processing order is newest-first for milestone detection (first-seen
// wins for the Last* milestones, last-seen wins for the First* milestones)
// while time accumulation is chronological, per the engine's own
// description of itself.
func Compute(chain []domain.Changelog, categoryOf map[uuid.UUID]domain.StatusCategory) Result {
	var res Result
	if len(chain) == 0 {
		return res
	}

	sorted := make([]domain.Changelog, len(chain))
	copy(sorted, chain)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TransitionChangeDate.Before(sorted[j].TransitionChangeDate)
	})

	// Chronological pass: accumulate counts and time-in-status sums, and
	// capture the FIRST-seen timestamp for each milestone (the oldest
	// transition into that category) as we go.
	for i := range sorted {
		cl := &sorted[i]
		if cl.ToStatusID == nil {
			continue
		}
		cat, ok := categoryOf[*cl.ToStatusID]
		if !ok {
			continue
		}
		ts := cl.TransitionChangeDate
		switch cat {
		case domain.StatusCategoryToDo:
			res.TotalBacklogReturns++
			res.TotalReviewTimeSeconds += cl.TimeInStatusSeconds
			if res.WorkFirstCommittedAt == nil {
				t := ts
				res.WorkFirstCommittedAt = &t
			}
		case domain.StatusCategoryInProgress:
			res.TotalWorkStarts++
			res.TotalWorkTimeSeconds += cl.TimeInStatusSeconds
			if res.WorkFirstStartedAt == nil {
				t := ts
				res.WorkFirstStartedAt = &t
			}
		case domain.StatusCategoryDone:
			res.TotalCompletions++
			if res.WorkFirstCompletedAt == nil {
				t := ts
				res.WorkFirstCompletedAt = &t
			}
		}
	}

	// Newest-first pass: the LAST milestones are first-seen when walking
	// backward from the most recent transition.
	for i := len(sorted) - 1; i >= 0; i-- {
		cl := &sorted[i]
		if cl.ToStatusID == nil {
			continue
		}
		cat, ok := categoryOf[*cl.ToStatusID]
		if !ok {
			continue
		}
		ts := cl.TransitionChangeDate
		switch cat {
		case domain.StatusCategoryInProgress:
			if res.WorkLastStartedAt == nil {
				t := ts
				res.WorkLastStartedAt = &t
			}
		case domain.StatusCategoryDone:
			if res.WorkLastCompletedAt == nil {
				t := ts
				res.WorkLastCompletedAt = &t
			}
		}
	}

	if res.WorkLastCompletedAt != nil && res.WorkFirstStartedAt != nil {
		res.TotalCycleTimeSeconds = res.WorkLastCompletedAt.Sub(*res.WorkFirstStartedAt).Seconds()
	}
	if res.WorkLastCompletedAt != nil && res.WorkFirstCommittedAt != nil {
		res.TotalLeadTimeSeconds = res.WorkLastCompletedAt.Sub(*res.WorkFirstCommittedAt).Seconds()
	}

	res.WorkflowComplexityScore = 2*res.TotalBacklogReturns + max(0, res.TotalCompletions-1)
	res.ReworkIndicator = res.TotalWorkStarts > 1
	res.DirectCompletion = res.TotalCompletions == 1 && res.TotalWorkStarts == 0 && len(sorted) == 1

	return res
}
