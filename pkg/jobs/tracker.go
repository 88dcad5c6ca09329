package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/evoengine/core/pkg/orcherrors"
	"github.com/evoengine/core/pkg/tracecontext"
	"github.com/google/uuid"
)

// stage-based progress fractions for a single round run (spec.md §4.9):
// planning, generating, evaluating, selecting, reporting.
var roundStageProgress = []float64{0.2, 0.4, 0.6, 0.8, 1.0}

// RoundRunner executes one round, reporting progress at each of the
// five stage boundaries via report. It must return orcherrors.ErrCancelled
// promptly after observing ctx.Done().
type RoundRunner func(ctx context.Context, campaignID string, roundNumber int, report func(stageIndex int)) error

// CampaignRunner executes an entire campaign, reporting progress after
// each completed round via report(completedRounds, maxRounds).
type CampaignRunner func(ctx context.Context, campaignID string, report func(completedRounds, maxRounds int)) error

// Tracker holds every Job created this process and the cancel function
// of its backing goroutine, grounded on the worker pool's session
// cancel-registry (pod_id → context.CancelFunc map guarded by an
// RWMutex).
type Tracker struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	cancels map[string]context.CancelFunc

	now func() time.Time
}

// New builds an empty Tracker.
func New() *Tracker {
	return &Tracker{
		jobs:    make(map[string]*Job),
		cancels: make(map[string]context.CancelFunc),
		now:     time.Now,
	}
}

func (t *Tracker) register(job *Job, cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[job.ID] = job
	t.cancels[job.ID] = cancel
}

func (t *Tracker) unregisterCancel(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.cancels, jobID)
}

// Get returns a snapshot of the named job, or false if unknown.
func (t *Tracker) Get(jobID string) (Snapshot, bool) {
	t.mu.RLock()
	job, ok := t.jobs[jobID]
	t.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return job.Snapshot(), true
}

// List returns a snapshot of every tracked job, newest first.
func (t *Tracker) List() []Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Snapshot, 0, len(t.jobs))
	for _, j := range t.jobs {
		out = append(out, j.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Cancel requests cooperative cancellation of a non-terminal job.
// Returns orcherrors.EntityNotFound if the job is unknown.
func (t *Tracker) Cancel(jobID string) error {
	t.mu.RLock()
	job, ok := t.jobs[jobID]
	cancel := t.cancels[jobID]
	t.mu.RUnlock()
	if !ok {
		return orcherrors.NewEntityNotFound("job", jobID)
	}
	if !job.requestCancel() {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	return nil
}

// Cleanup removes terminal jobs older than maxAge, returning the
// number removed.
func (t *Tracker) Cleanup(maxAge time.Duration) int {
	cutoff := t.now().Add(-maxAge)
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, job := range t.jobs {
		snap := job.Snapshot()
		if snap.Status.terminal() && snap.CompletedAt != nil && snap.CompletedAt.Before(cutoff) {
			delete(t.jobs, id)
			delete(t.cancels, id)
			removed++
		}
	}
	return removed
}

// SubmitRound starts an execute_round job on a background goroutine
// and returns immediately with its id, per spec.md §4.9.
func (t *Tracker) SubmitRound(parent context.Context, campaignID string, roundNumber int, traceID string, run RoundRunner) *Job {
	job := newJob(uuid.NewString(), TaskExecuteRound, campaignID, &roundNumber, traceID, t.now())
	ctx, cancel := context.WithCancel(parent)
	t.register(job, cancel)

	go func() {
		defer cancel()
		defer t.unregisterCancel(job.ID)

		report := func(stageIndex int) {
			if stageIndex < 0 {
				stageIndex = 0
			}
			if stageIndex >= len(roundStageProgress) {
				stageIndex = len(roundStageProgress) - 1
			}
			job.setProgress(t.now(), roundStageProgress[stageIndex])
		}

		err := run(ctx, campaignID, roundNumber, report)
		t.settle(job, err)
	}()

	return job
}

// SubmitCampaign starts an execute_campaign job on a background
// goroutine and returns immediately with its id. Progress is tracked
// as completed_rounds/max_rounds.
func (t *Tracker) SubmitCampaign(parent context.Context, campaignID string, run CampaignRunner) *Job {
	traceID := tracecontext.NewTraceID()
	job := newJob(uuid.NewString(), TaskExecuteCampaign, campaignID, nil, traceID, t.now())
	ctx, cancel := context.WithCancel(parent)
	t.register(job, cancel)

	go func() {
		defer cancel()
		defer t.unregisterCancel(job.ID)

		report := func(completedRounds, maxRounds int) {
			if maxRounds <= 0 {
				return
			}
			job.setProgress(t.now(), float64(completedRounds)/float64(maxRounds))
		}

		err := run(ctx, campaignID, report)
		t.settle(job, err)
	}()

	return job
}

func (t *Tracker) settle(job *Job, err error) {
	now := t.now()
	if err == nil {
		job.finish(now, StatusCompleted, map[string]interface{}{"campaign_id": job.CampaignID}, "")
		return
	}
	if job.cancelled() {
		job.finish(now, StatusCancelled, nil, "cancelled")
		return
	}
	job.finish(now, StatusFailed, nil, fmt.Sprintf("%v", err))
}

// CancelRequested reports whether the job backing ctx has an observed
// cancellation request pending. RoundRunner/CampaignRunner implementations
// call this at stage boundaries to exit cooperatively instead of relying
// solely on ctx.Err().
func CancelRequested(ctx context.Context) bool {
	return ctx.Err() != nil
}
