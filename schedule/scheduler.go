// Package schedule holds pending publications and fires each one at its
// due time.
//
// There is at most one job per file path. Jobs fire one at a time on the
// scheduler goroutine, in (due time, path) order, so publications never
// run concurrently against the same working tree.
package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/emile/errors"
	"github.com/teranos/emile/logger"
	"github.com/teranos/emile/slug"
)

// Job is a pending publication.
type Job struct {
	Path string
	At   time.Time
	// Lang is the Zola language suffix of the file ("fr" for post.fr.md)
	Lang string
}

// Handler publishes one job. A returned error is logged; the loop goes on.
type Handler func(ctx context.Context, job Job) error

// Scheduler fires jobs at their due time.
type Scheduler struct {
	handler Handler
	clock   Clock

	mu   sync.Mutex
	jobs map[string]Job

	// wake is signalled when the earliest due time moves earlier
	wake chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	schedLog *zap.SugaredLogger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// New creates a scheduler that calls handler for every due job.
func New(handler Handler, opts ...Option) *Scheduler {
	s := &Scheduler{
		handler:  handler,
		clock:    RealClock{},
		jobs:     make(map[string]Job),
		wake:     make(chan struct{}, 1),
		schedLog: logger.AddScheduleSymbol(logger.ComponentLogger("schedule")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule inserts or replaces the job for path. A due time in the past
// fires as soon as the loop gets to it.
func (s *Scheduler) Schedule(path string, at time.Time) Job {
	_, lang := slug.SplitLang(slug.Stem(path))
	job := Job{Path: path, At: at, Lang: lang}

	s.mu.Lock()
	earliest, hadJobs := s.earliestLocked()
	_, replaced := s.jobs[path]
	s.jobs[path] = job
	s.mu.Unlock()

	s.schedLog.Infow("Scheduled",
		logger.FieldPath, path,
		logger.FieldDueAt, at,
		"replaced", replaced)

	if !hadJobs || before(job, earliest) {
		s.signal()
	}
	return job
}

// Cancel removes the job for path. It reports whether there was one.
func (s *Scheduler) Cancel(path string) bool {
	s.mu.Lock()
	_, ok := s.jobs[path]
	delete(s.jobs, path)
	s.mu.Unlock()

	if ok {
		s.schedLog.Infow("Unscheduled", logger.FieldPath, path)
	}
	return ok
}

// Pending returns the jobs not yet fired, in firing order.
func (s *Scheduler) Pending() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return before(jobs[i], jobs[k]) })
	return jobs
}

// Lookup returns the pending job for path.
func (s *Scheduler) Lookup(path string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[path]
	return j, ok
}

// Run fires jobs until ctx is cancelled. It sleeps until the earliest due
// time, or until Schedule moves that time earlier.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		if job, ok := s.popDue(s.clock.Now()); ok {
			s.fire(ctx, job)
			continue
		}

		var timer Timer
		var due <-chan time.Time
		s.mu.Lock()
		next, ok := s.earliestLocked()
		s.mu.Unlock()
		if ok {
			timer = s.clock.NewTimer(next.At)
			due = timer.C()
			s.schedLog.Debugw("Sleeping until next job",
				logger.FieldPath, next.Path,
				logger.FieldDueAt, next.At)
		}

		select {
		case <-ctx.Done():
		case <-s.wake:
		case <-due:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Start runs the loop in a goroutine until Stop or ctx cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.Run(s.ctx)
	}()
	s.schedLog.Infow("Scheduler started", logger.FieldCount, len(s.Pending()))
}

// Stop cancels the loop and waits for the job in progress to return.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.schedLog.Infow("Scheduler stopped")
}

func (s *Scheduler) fire(ctx context.Context, job Job) {
	start := s.clock.Now()
	s.schedLog.Infow("Firing",
		logger.FieldPath, job.Path,
		logger.FieldDueAt, job.At,
		logger.FieldDelay, start.Sub(job.At).Round(time.Millisecond))

	err := s.safeHandle(ctx, job)
	if err != nil {
		s.schedLog.Errorw("Job failed",
			logger.FieldPath, job.Path,
			logger.FieldErrorKind, errors.Kind(err),
			logger.FieldError, err)
	}
}

func (s *Scheduler) safeHandle(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("job %s panicked: %v", job.Path, r)
		}
	}()
	return s.handler(ctx, job)
}

// popDue removes and returns the earliest job if it is due at now.
func (s *Scheduler) popDue(now time.Time) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.earliestLocked()
	if !ok || job.At.After(now) {
		return Job{}, false
	}
	delete(s.jobs, job.Path)
	return job, true
}

func (s *Scheduler) earliestLocked() (Job, bool) {
	var first Job
	found := false
	for _, j := range s.jobs {
		if !found || before(j, first) {
			first, found = j, true
		}
	}
	return first, found
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func before(a, b Job) bool {
	if !a.At.Equal(b.At) {
		return a.At.Before(b.At)
	}
	return a.Path < b.Path
}
