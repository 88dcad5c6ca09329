// Package jobs implements the asynchronous job tracker (C9): a
// campaign or round run is handed to a background goroutine and
// tracked by an in-memory Job record that the API layer polls or
// streams. There is no persistence layer for jobs themselves — a
// process restart loses in-flight job state, same as the trace id it
// rides on.
package jobs

import (
	"sync"
	"time"
)

// Status enumerates the lifecycle states a Job can be in.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// TaskType names the two entry points a Job can track.
type TaskType string

const (
	TaskExecuteRound    TaskType = "execute_round"
	TaskExecuteCampaign TaskType = "execute_campaign"
)

// Job is the tracked state of one execute_round or execute_campaign
// run (spec.md §4.9).
type Job struct {
	ID          string
	TaskType    TaskType
	CampaignID  string
	RoundNumber *int
	TraceID     string

	mu              sync.Mutex
	status          Status
	progress        float64
	result          map[string]interface{}
	errMsg          string
	createdAt       time.Time
	startedAt       *time.Time
	completedAt     *time.Time
	cancelRequested bool
}

func newJob(id string, taskType TaskType, campaignID string, roundNumber *int, traceID string, now time.Time) *Job {
	return &Job{
		ID:          id,
		TaskType:    taskType,
		CampaignID:  campaignID,
		RoundNumber: roundNumber,
		TraceID:     traceID,
		status:      StatusPending,
		createdAt:   now,
	}
}

// Snapshot is an immutable, race-free copy of a Job's state for
// reporting to callers (API responses, SSE events).
type Snapshot struct {
	ID          string                 `json:"id"`
	TaskType    TaskType               `json:"task_type"`
	CampaignID  string                 `json:"campaign_id,omitempty"`
	RoundNumber *int                   `json:"round_number,omitempty"`
	TraceID     string                 `json:"trace_id"`
	Status      Status                 `json:"status"`
	Progress    float64                `json:"progress"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// Snapshot returns a point-in-time copy of the job's state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		ID:          j.ID,
		TaskType:    j.TaskType,
		CampaignID:  j.CampaignID,
		RoundNumber: j.RoundNumber,
		TraceID:     j.TraceID,
		Status:      j.status,
		Progress:    j.progress,
		Result:      j.result,
		Error:       j.errMsg,
		CreatedAt:   j.createdAt,
		StartedAt:   j.startedAt,
		CompletedAt: j.completedAt,
	}
}

// setProgress clamps progress to [0,1] and transitions pending→running
// on the first update, per spec.md §4.9.
func (j *Job) setProgress(now time.Time, p float64) {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.terminal() {
		return
	}
	j.progress = p
	if j.status == StatusPending {
		j.status = StatusRunning
		started := now
		j.startedAt = &started
	}
}

// finish transitions the job to a terminal status, recording
// completed_at. A job already terminal (e.g. cancelled mid-flight) is
// left alone — the first terminal write wins.
func (j *Job) finish(now time.Time, status Status, result map[string]interface{}, errMsg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.terminal() {
		return
	}
	if j.startedAt == nil {
		started := now
		j.startedAt = &started
	}
	j.status = status
	if status == StatusCompleted {
		j.progress = 1
	}
	j.result = result
	j.errMsg = errMsg
	completed := now
	j.completedAt = &completed
}

// requestCancel marks the job cancelled if it has not already reached
// a terminal status. Cancellation is cooperative: the running goroutine
// observes it at the next stage boundary via CancelRequested.
func (j *Job) requestCancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.terminal() {
		return false
	}
	j.cancelRequested = true
	return true
}

func (j *Job) cancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelRequested
}
