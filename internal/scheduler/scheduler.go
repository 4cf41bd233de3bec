package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SessionCheckJob is the name of the job that verifies the X session
const SessionCheckJob = "session-check"

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler manages periodic tasks
type Scheduler struct {
	cron     *cron.Cron
	logger   *zap.Logger
	timezone *time.Location

	mu   sync.Mutex
	jobs map[string]cron.EntryID

	jobTimeout time.Duration
}

// New creates a new scheduler with the given timezone
func New(timezone string, logger *zap.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}

	logger = logger.Named("scheduler")
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(zap.NewStdLog(logger)))),
	)

	return &Scheduler{
		cron:       c,
		logger:     logger,
		timezone:   loc,
		jobs:       make(map[string]cron.EntryID),
		jobTimeout: 5 * time.Minute,
	}, nil
}

func (s *Scheduler) run(name string, job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	log := s.logger.With(zap.String("job", name))
	log.Info("Starting job")
	start := time.Now()

	err := job(ctx)
	if err != nil {
		log.Warn("Job failed", zap.Error(err))
	} else {
		log.Info("Job completed", zap.Duration("took", time.Since(start)))
	}
	return err
}

// AddJob adds a job with a cron schedule. Adding a job under an existing
// name replaces it.
// schedule format: "*/15 * * * *" or "@every 15m"
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		_ = s.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.mu.Lock()
	if old, ok := s.jobs[name]; ok {
		s.cron.Remove(old)
	}
	s.jobs[name] = entryID
	s.mu.Unlock()

	s.logger.Info("Added job", zap.String("job", name), zap.String("schedule", schedule))
	return nil
}

// AddSessionCheckJob runs job every intervalMinutes. Zero or less disables it.
func (s *Scheduler) AddSessionCheckJob(intervalMinutes int, job Job) error {
	if intervalMinutes <= 0 {
		s.logger.Info("Session check disabled")
		return nil
	}
	return s.AddJob(SessionCheckJob, fmt.Sprintf("@every %dm", intervalMinutes), job)
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.logger.Info("Removed job", zap.String("job", name))
	}
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop halts the scheduler; the returned context is done once running jobs finish
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("Stopping scheduler")
	return s.cron.Stop()
}

// RunNow immediately executes a job
func (s *Scheduler) RunNow(name string, job Job) error {
	return s.run(name, job)
}

// ListJobs returns info about scheduled jobs
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, entryID := range s.jobs {
		entry := s.cron.Entry(entryID)
		if !entry.Valid() {
			continue
		}
		infos = append(infos, JobInfo{
			Name:    name,
			NextRun: entry.Next,
			LastRun: entry.Prev,
		})
	}

	return infos
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}
