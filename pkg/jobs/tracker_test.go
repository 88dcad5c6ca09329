package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRoundCompletes(t *testing.T) {
	tr := New()
	done := make(chan struct{})
	release := make(chan struct{})

	job := tr.SubmitRound(context.Background(), "camp-1", 1, "trace-1", func(ctx context.Context, campaignID string, roundNumber int, report func(int)) error {
		<-release
		report(0)
		report(4)
		close(done)
		return nil
	})

	require.Equal(t, StatusPending, job.Snapshot().Status)
	close(release)
	<-done
	assert.Eventually(t, func() bool {
		snap, _ := tr.Get(job.ID)
		return snap.Status == StatusCompleted
	}, time.Second, time.Millisecond)

	snap, ok := tr.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, 1.0, snap.Progress)
	assert.NotNil(t, snap.StartedAt)
	assert.NotNil(t, snap.CompletedAt)
}

func TestSubmitRoundFailurePropagates(t *testing.T) {
	tr := New()
	wantErr := errors.New("boom")
	job := tr.SubmitRound(context.Background(), "camp-1", 1, "trace-1", func(ctx context.Context, campaignID string, roundNumber int, report func(int)) error {
		return wantErr
	})

	var snap Snapshot
	assert.Eventually(t, func() bool {
		snap, _ = tr.Get(job.ID)
		return snap.Status.terminal()
	}, time.Second, time.Millisecond)

	assert.Equal(t, StatusFailed, snap.Status)
	assert.Contains(t, snap.Error, "boom")
}

func TestCancelStopsRunningJob(t *testing.T) {
	tr := New()
	var observed int32
	started := make(chan struct{})

	job := tr.SubmitRound(context.Background(), "camp-1", 1, "trace-1", func(ctx context.Context, campaignID string, roundNumber int, report func(int)) error {
		report(0)
		close(started)
		<-ctx.Done()
		atomic.StoreInt32(&observed, 1)
		return ctx.Err()
	})

	<-started
	require.NoError(t, tr.Cancel(job.ID))

	assert.Eventually(t, func() bool {
		snap, _ := tr.Get(job.ID)
		return snap.Status == StatusCancelled
	}, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&observed))
}

func TestCancelUnknownJobReturnsNotFound(t *testing.T) {
	tr := New()
	err := tr.Cancel("missing")
	assert.Error(t, err)
}

func TestSubmitCampaignProgressByRoundFraction(t *testing.T) {
	tr := New()
	reported := make(chan struct{})
	proceed := make(chan struct{})
	job := tr.SubmitCampaign(context.Background(), "camp-2", func(ctx context.Context, campaignID string, report func(int, int)) error {
		report(1, 4)
		close(reported)
		<-proceed
		report(2, 4)
		return nil
	})

	<-reported
	snap, ok := tr.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, 0.25, snap.Progress)
	assert.Equal(t, StatusRunning, snap.Status)
	close(proceed)

	assert.Eventually(t, func() bool {
		snap, _ := tr.Get(job.ID)
		return snap.Status == StatusCompleted
	}, time.Second, time.Millisecond)
}

func TestCleanupRemovesOldTerminalJobs(t *testing.T) {
	tr := New()
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	job := tr.SubmitRound(context.Background(), "camp-1", 1, "trace-1", func(ctx context.Context, campaignID string, roundNumber int, report func(int)) error {
		return nil
	})
	assert.Eventually(t, func() bool {
		snap, _ := tr.Get(job.ID)
		return snap.Status == StatusCompleted
	}, time.Second, time.Millisecond)

	tr.now = func() time.Time { return fixed.Add(48 * time.Hour) }
	removed := tr.Cleanup(24 * time.Hour)
	assert.Equal(t, 1, removed)

	_, ok := tr.Get(job.ID)
	assert.False(t, ok)
}

func TestProgressClampedToUnitRange(t *testing.T) {
	job := newJob("j1", TaskExecuteRound, "camp", nil, "trace", time.Now())
	job.setProgress(time.Now(), 1.5)
	assert.Equal(t, 1.0, job.Snapshot().Progress)

	job2 := newJob("j2", TaskExecuteRound, "camp", nil, "trace", time.Now())
	job2.setProgress(time.Now(), -0.5)
	assert.Equal(t, 0.0, job2.Snapshot().Progress)
}
