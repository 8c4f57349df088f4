package scheduler

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fluxarr/fluxarr/internal/migration"
	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/fluxarr/fluxarr/internal/repository"
)

func newTestScheduler(t *testing.T) (*Scheduler, repository.JobConfigRepository) {
	t.Helper()
	db, err := repository.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migration.RunMigrations(db, zerolog.Nop()))

	repo := repository.NewJobConfigRepository(db)
	sched := New(repo, zerolog.Nop())
	sched.jitter = func() time.Duration { return time.Hour } // keep timers out of tests
	return sched, repo
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func jobStatus(s *Scheduler, id string) (models.JobStatus, bool) {
	for _, status := range s.JobsStatus() {
		if status.ID == id {
			return status, true
		}
	}
	return models.JobStatus{}, false
}

func TestTriggerJobIsSingleFlight(t *testing.T) {
	sched, _ := newTestScheduler(t)

	release := make(chan struct{})
	started := make(chan struct{})
	var runs int32
	sched.Register(JobDefinition{
		ID:              "blocking-job",
		Name:            "Blocking Job",
		DefaultInterval: time.Hour,
		Run: func(ctx context.Context) error {
			atomic.AddInt32(&runs, 1)
			close(started)
			<-release
			return nil
		},
	})
	require.NoError(t, sched.Start(context.Background()))
	defer sched.Stop()

	require.True(t, sched.TriggerJob("blocking-job"))
	<-started

	// A second trigger while the first is in flight is a no-op.
	require.False(t, sched.TriggerJob("blocking-job"))

	close(release)
	waitFor(t, func() bool {
		status, ok := jobStatus(sched, "blocking-job")
		return ok && !status.IsRunning && status.LastRun != nil
	})
	require.Equal(t, int32(1), atomic.LoadInt32(&runs))

	status, _ := jobStatus(sched, "blocking-job")
	require.Equal(t, "success", status.LastResult)
}

func TestTriggerUnknownJob(t *testing.T) {
	sched, _ := newTestScheduler(t)
	require.NoError(t, sched.Start(context.Background()))
	defer sched.Stop()

	require.False(t, sched.TriggerJob("no-such-job"))
}

func TestJobPanicIsRecordedAsFailure(t *testing.T) {
	sched, _ := newTestScheduler(t)
	sched.Register(JobDefinition{
		ID:              "panicky-job",
		Name:            "Panicky Job",
		DefaultInterval: time.Hour,
		Run: func(ctx context.Context) error {
			panic("boom")
		},
	})
	require.NoError(t, sched.Start(context.Background()))
	defer sched.Stop()

	require.True(t, sched.TriggerJob("panicky-job"))
	waitFor(t, func() bool {
		status, ok := jobStatus(sched, "panicky-job")
		return ok && status.LastResult == "failure"
	})

	status, _ := jobStatus(sched, "panicky-job")
	require.Contains(t, status.LastError, "boom")
}

func TestLastRunPersistsAcrossRestart(t *testing.T) {
	sched, repo := newTestScheduler(t)
	sched.Register(JobDefinition{
		ID:              "quick-job",
		Name:            "Quick Job",
		DefaultInterval: time.Hour,
		Run:             func(ctx context.Context) error { return nil },
	})
	require.NoError(t, sched.Start(context.Background()))

	require.True(t, sched.TriggerJob("quick-job"))
	waitFor(t, func() bool {
		status, ok := jobStatus(sched, "quick-job")
		return ok && status.LastRun != nil
	})
	sched.Stop()

	// A new scheduler over the same database sees the recorded run.
	restarted := New(repo, zerolog.Nop())
	restarted.jitter = func() time.Duration { return time.Hour }
	restarted.Register(JobDefinition{
		ID:              "quick-job",
		Name:            "Quick Job",
		DefaultInterval: time.Hour,
		Run:             func(ctx context.Context) error { return nil },
	})
	require.NoError(t, restarted.Start(context.Background()))
	defer restarted.Stop()

	status, ok := jobStatus(restarted, "quick-job")
	require.True(t, ok)
	require.NotNil(t, status.LastRun)
	require.NotNil(t, status.NextRun)
}

func TestStopRefusesLateRuns(t *testing.T) {
	sched, _ := newTestScheduler(t)

	var runs int32
	sched.Register(JobDefinition{
		ID:              "late-job",
		Name:            "Late Job",
		DefaultInterval: time.Hour,
		Run: func(ctx context.Context) error {
			atomic.AddInt32(&runs, 1)
			return nil
		},
	})
	require.NoError(t, sched.Start(context.Background()))
	sched.Stop()

	// A timer callback landing after Stop must not execute the body, or the
	// shutdown WaitGroup would have nothing to wait on.
	require.False(t, sched.runJob("late-job", false))
	time.Sleep(20 * time.Millisecond)
	require.Zero(t, atomic.LoadInt32(&runs))
}

func TestUpdateJobConfigReschedules(t *testing.T) {
	sched, _ := newTestScheduler(t)
	sched.Register(JobDefinition{
		ID:              "tunable-job",
		Name:            "Tunable Job",
		DefaultInterval: time.Hour,
		Run:             func(ctx context.Context) error { return nil },
	})
	require.NoError(t, sched.Start(context.Background()))
	defer sched.Stop()

	disabled := false
	cfg, err := sched.UpdateJobConfig(context.Background(), "tunable-job",
		models.JobConfigPatch{Enabled: &disabled})
	require.NoError(t, err)
	require.False(t, cfg.Enabled)

	status, _ := jobStatus(sched, "tunable-job")
	require.Nil(t, status.NextRun, "disabled job must hold no timer")

	enabled := true
	interval := 30
	cfg, err = sched.UpdateJobConfig(context.Background(), "tunable-job",
		models.JobConfigPatch{Enabled: &enabled, IntervalMinutes: &interval})
	require.NoError(t, err)
	require.True(t, cfg.Enabled)
	require.Equal(t, 30, cfg.IntervalMinutes)

	status, _ = jobStatus(sched, "tunable-job")
	require.NotNil(t, status.NextRun)

	_, err = sched.UpdateJobConfig(context.Background(), "missing",
		models.JobConfigPatch{Enabled: &enabled})
	require.ErrorIs(t, err, repository.ErrNotFound)
}
