// Package scheduler runs the background jobs on persisted, user-adjustable
// intervals. All state lives on the Scheduler value so a process restart
// rebuilds timers from the job_config table.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/fluxarr/fluxarr/internal/repository"
)

// JobFunc is one job's body. It must be safe to run repeatedly and honor ctx
// cancellation.
type JobFunc func(ctx context.Context) error

// JobDefinition is a compiled-in job with its default schedule. The effective
// interval comes from the persisted JobConfig.
type JobDefinition struct {
	ID              string
	Name            string
	Description     string
	DefaultInterval time.Duration
	Run             JobFunc
}

// startupJitterMax spreads initial runs out so a restart does not fire every
// overdue job in the same instant.
const startupJitterMax = 5 * time.Second

type jobState struct {
	def      JobDefinition
	config   models.JobConfig
	timer    *time.Timer
	running  bool
	lastRun  *time.Time
	lastOK   *bool
	lastErr  string
	nextRun  *time.Time
}

// Scheduler owns the job timers. All mutation goes through its mutex; job
// bodies execute outside the lock.
type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]*jobState
	repo   repository.JobConfigRepository
	logger zerolog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	jitter func() time.Duration
}

func New(repo repository.JobConfigRepository, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		jobs:   make(map[string]*jobState),
		repo:   repo,
		logger: logger.With().Str("component", "scheduler").Logger(),
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(startupJitterMax)))
		},
	}
}

// Register adds a job definition. Must be called before Start.
func (s *Scheduler) Register(def JobDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[def.ID] = &jobState{def: def}
}

// Start loads or creates each job's persisted config and arms its timer.
// A job with no recorded run, or one overdue, fires after a short jitter;
// otherwise it fires when the remainder of its interval elapses.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.baseCtx, s.cancel = context.WithCancel(ctx)

	for id, state := range s.jobs {
		cfg, err := s.repo.GetOrCreate(ctx, id, int(state.def.DefaultInterval.Minutes()))
		if err != nil {
			s.cancel()
			return errors.Wrapf(err, "load config for job %s", id)
		}
		state.config = cfg
		state.lastRun = cfg.LastRun
		s.scheduleLocked(state)
	}
	return nil
}

// Stop halts every timer and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	for _, state := range s.jobs {
		if state.timer != nil {
			state.timer.Stop()
			state.timer = nil
		}
		state.nextRun = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// scheduleLocked arms one job's timer per the scheduling decision. Caller
// holds the mutex.
func (s *Scheduler) scheduleLocked(state *jobState) {
	if state.timer != nil {
		state.timer.Stop()
		state.timer = nil
	}
	state.nextRun = nil

	if !state.config.Enabled {
		s.logger.Info().Str("job", state.def.ID).Msg("job disabled")
		return
	}

	interval := time.Duration(state.config.IntervalMinutes) * time.Minute
	var delay time.Duration
	if state.lastRun == nil {
		delay = s.jitter()
	} else {
		elapsed := time.Since(*state.lastRun)
		if elapsed >= interval {
			delay = s.jitter()
		} else {
			delay = interval - elapsed
		}
	}

	next := time.Now().Add(delay)
	state.nextRun = &next
	id := state.def.ID
	state.timer = time.AfterFunc(delay, func() { s.fire(id) })

	s.logger.Info().Str("job", id).Dur("delay", delay).Msg("job scheduled")
}

// fire runs a job off its timer and re-arms it afterwards.
func (s *Scheduler) fire(id string) {
	s.runJob(id, false)

	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.jobs[id]
	if !ok || s.baseCtx == nil || s.baseCtx.Err() != nil {
		return
	}
	// Re-arm for the next interval from now.
	if state.config.Enabled {
		interval := time.Duration(state.config.IntervalMinutes) * time.Minute
		next := time.Now().Add(interval)
		state.nextRun = &next
		state.timer = time.AfterFunc(interval, func() { s.fire(id) })
	}
}

// runJob executes one job body with single-flight protection. Returns false
// when the job was skipped because a run was already in flight.
func (s *Scheduler) runJob(id string, manual bool) bool {
	s.mu.Lock()
	state, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if state.running {
		s.mu.Unlock()
		s.logger.Warn().Str("job", id).Bool("manual", manual).Msg("job already running, skipping")
		return false
	}
	ctx := s.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		// Shutdown already started; Stop may have passed its Wait.
		s.mu.Unlock()
		return false
	}
	state.running = true
	// Registered under the lock so a concurrent Stop cannot reach its Wait
	// between the unlock and the Add.
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	started := time.Now().UTC()
	err := s.safeRun(ctx, state.def)

	s.mu.Lock()
	state.running = false
	state.lastRun = &started
	ok2 := err == nil
	state.lastOK = &ok2
	if err != nil {
		state.lastErr = err.Error()
	} else {
		state.lastErr = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Str("job", id).Msg("job failed")
	} else {
		s.logger.Info().Str("job", id).Dur("took", time.Since(started)).Msg("job finished")
	}

	if perr := s.repo.SetLastRun(context.Background(), id, started); perr != nil {
		s.logger.Error().Err(perr).Str("job", id).Msg("persist last run failed")
	}
	return true
}

// safeRun converts a job panic into an error so one bad run cannot take the
// process down.
func (s *Scheduler) safeRun(ctx context.Context, def JobDefinition) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", def.ID, r)
		}
	}()
	return def.Run(ctx)
}

// TriggerJob starts a job immediately, off the caller's goroutine. Returns
// false if the job is unknown or already running.
func (s *Scheduler) TriggerJob(id string) bool {
	s.mu.Lock()
	state, ok := s.jobs[id]
	if !ok || state.running {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	go s.runJob(id, true)
	return true
}

// UpdateJobConfig persists a config change and re-runs the scheduling
// decision for the job.
func (s *Scheduler) UpdateJobConfig(ctx context.Context, id string, patch models.JobConfigPatch) (models.JobConfig, error) {
	s.mu.Lock()
	state, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return models.JobConfig{}, repository.ErrNotFound
	}

	cfg, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return models.JobConfig{}, err
	}

	s.mu.Lock()
	state.config = cfg
	s.scheduleLocked(state)
	s.mu.Unlock()
	return cfg, nil
}

// JobsStatus snapshots every job for the admin API, sorted by id on the
// caller side if needed.
func (s *Scheduler) JobsStatus() []models.JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]models.JobStatus, 0, len(s.jobs))
	for _, state := range s.jobs {
		status := models.JobStatus{
			ID:              state.def.ID,
			Name:            state.def.Name,
			Description:     state.def.Description,
			Enabled:         state.config.Enabled,
			IntervalMinutes: state.config.IntervalMinutes,
			IsRunning:       state.running,
			LastRun:         state.lastRun,
			NextRun:         state.nextRun,
			LastError:       state.lastErr,
		}
		if state.lastOK != nil {
			if *state.lastOK {
				status.LastResult = "success"
			} else {
				status.LastResult = "failure"
			}
		}
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	return statuses
}
