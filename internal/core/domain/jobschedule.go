package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobScheduleStatus is the cycling state machine driving when an
// integration's extraction pipeline runs next.
type JobScheduleStatus string

const (
	JobScheduleReady       JobScheduleStatus = "READY"
	JobScheduleRunning     JobScheduleStatus = "RUNNING"
	JobScheduleFinished    JobScheduleStatus = "FINISHED"
	JobSchedulePending     JobScheduleStatus = "PENDING"
	JobSchedulePaused      JobScheduleStatus = "PAUSED"
	JobScheduleFailed      JobScheduleStatus = "FAILED"
	JobScheduleRateLimited JobScheduleStatus = "RATE_LIMIT_REACHED"
)

// JobSchedule tracks one named sync job (e.g. "extract_issues") for one
// integration and cycles READY -> RUNNING -> FINISHED -> PENDING -> READY,
// with FAILED and RATE_LIMIT_REACHED as excursions back toward READY once
// their cause clears.
type JobSchedule struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	IntegrationID    uuid.UUID
	JobName          string
	Status           JobScheduleStatus
	ExecutionOrder   int
	LastSuccessAt    *time.Time
	LastRunStartedAt *time.Time
	NextRun          *time.Time
	ErrorMessage     string
	Checkpoint       map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CanRun reports whether the schedule is eligible to be picked up now.
func (j *JobSchedule) CanRun(now time.Time) bool {
	if j.Status == JobSchedulePaused {
		return false
	}
	if j.Status != JobScheduleReady && j.Status != JobSchedulePending {
		return false
	}
	if j.NextRun != nil && j.NextRun.After(now) {
		return false
	}
	return true
}

// MarkRunning transitions the schedule into RUNNING at the given time.
func (j *JobSchedule) MarkRunning(now time.Time) {
	j.Status = JobScheduleRunning
	j.LastRunStartedAt = &now
	j.ErrorMessage = ""
}

// MarkFinished transitions the schedule back to READY, recording success and
// scheduling the next run after interval.
func (j *JobSchedule) MarkFinished(now time.Time, interval time.Duration) {
	j.Status = JobScheduleReady
	j.LastSuccessAt = &now
	next := now.Add(interval)
	j.NextRun = &next
	j.ErrorMessage = ""
}

// MarkFailed transitions the schedule into FAILED, recording the error and
// scheduling a retry after backoff.
func (j *JobSchedule) MarkFailed(now time.Time, msg string, backoff time.Duration) {
	j.Status = JobScheduleFailed
	j.ErrorMessage = msg
	next := now.Add(backoff)
	j.NextRun = &next
}

// MarkRateLimited transitions the schedule into RATE_LIMIT_REACHED, deferring
// the next run until resetAt.
func (j *JobSchedule) MarkRateLimited(resetAt time.Time) {
	j.Status = JobScheduleRateLimited
	j.NextRun = &resetAt
}

// Recover moves a FAILED or RATE_LIMIT_REACHED schedule back to READY once
// its next-run deadline has passed.
func (j *JobSchedule) Recover(now time.Time) {
	if (j.Status == JobScheduleFailed || j.Status == JobScheduleRateLimited) &&
		j.NextRun != nil && !j.NextRun.After(now) {
		j.Status = JobScheduleReady
	}
}

// Pause takes the schedule out of the cycle until explicitly resumed.
func (j *JobSchedule) Pause() {
	j.Status = JobSchedulePaused
}

// Resume returns a paused schedule to READY, eligible for immediate pickup.
func (j *JobSchedule) Resume(now time.Time) {
	j.Status = JobScheduleReady
	j.NextRun = &now
}
