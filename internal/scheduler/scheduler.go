// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrUnknownJob is returned by RunByName for names that were never registered
var ErrUnknownJob = errors.New("unknown job")

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// JobStatus is the last known state of a registered job
type JobStatus struct {
	LastRun   time.Time `json:"last_run,omitempty"`
	NextRun   time.Time `json:"next_run,omitempty"`
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	LastError string    `json:"last_error,omitempty"`
	Runs      int       `json:"runs"`
}

type entry struct {
	job    Job
	status JobStatus
	id     cron.EntryID
}

// Scheduler manages background jobs
type Scheduler struct {
	cron    *cron.Cron
	entries map[string]*entry
	log     zerolog.Logger
	mu      sync.Mutex
}

// New creates a new scheduler.
// Schedules use the standard five-field cron syntax plus descriptors such as @daily.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		entries: make(map[string]*entry),
		log:     log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "*/5 * * * *"  - Every 5 minutes
//   - "@hourly"      - Every hour
//   - "@daily"       - Every day at midnight
//   - "@every 30s"   - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	id, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", job.Name()).Msg("Running job")

		if err := s.run(job); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		} else {
			s.log.Debug().Str("job", job.Name()).Msg("Job completed")
		}
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[job.Name()] = &entry{id: id, job: job, status: JobStatus{Name: job.Name(), Schedule: schedule}}
	s.mu.Unlock()

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.run(job)
}

// RunByName executes a registered job immediately
func (s *Scheduler) RunByName(name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.RunNow(e.job)
}

// Status returns the registered jobs ordered by name
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.entries))
	for _, e := range s.entries {
		status := e.status
		status.NextRun = s.cron.Entry(e.id).Next
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) run(job Job) error {
	started := time.Now()
	err := job.Run()

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[job.Name()]; ok {
		e.status.LastRun = started
		e.status.Runs++
		e.status.LastError = ""
		if err != nil {
			e.status.LastError = err.Error()
		}
	}
	return err
}
