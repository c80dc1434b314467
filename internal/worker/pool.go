// Package worker runs catalogue imports in the background.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
	"github.com/ewilliams-labs/ecmcatalog/internal/core/services"
	"github.com/ewilliams-labs/ecmcatalog/internal/logging"
	"github.com/ewilliams-labs/ecmcatalog/internal/metrics"
)

var (
	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("worker: import queue is full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("worker: pool is stopped")
)

// maxFinished bounds how many finished jobs stay queryable.
const maxFinished = 256

// State is the lifecycle stage of an import job.
type State string

const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Importer persists a catalogue batch.
type Importer interface {
	ImportCatalogue(ctx context.Context, c domain.Catalogue) (services.ImportReport, error)
}

// Job is a snapshot of an import job.
type Job struct {
	ID          string                 `json:"id"`
	Source      string                 `json:"source"`
	State       State                  `json:"state"`
	SubmittedAt time.Time              `json:"submitted_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	FinishedAt  *time.Time             `json:"finished_at,omitempty"`
	Report      *services.ImportReport `json:"report,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

type task struct {
	id        string
	catalogue domain.Catalogue
}

// Pool manages background import workers.
type Pool struct {
	importer Importer
	workers  int
	tasks    chan task
	wg       sync.WaitGroup

	mu       sync.Mutex
	jobs     map[string]*Job
	finished []string
	stopped  bool
	stopOnce sync.Once
}

// NewPool creates a worker pool with the given worker count and queue size.
func NewPool(importer Importer, workers int, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		importer: importer,
		workers:  workers,
		tasks:    make(chan task, queueSize),
		jobs:     make(map[string]*Job),
	}
}

// Start launches the worker goroutines. Imports run under ctx.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for t := range p.tasks {
				metrics.ImportQueueDepth.Set(float64(len(p.tasks)))
				p.process(ctx, t)
			}
		}()
	}
}

// Stop closes the queue and waits for queued jobs to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.tasks)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

// Serve runs the pool until ctx is cancelled, for use under a supervisor.
func (p *Pool) Serve(ctx context.Context) error {
	p.Start(ctx)
	<-ctx.Done()
	p.Stop()
	return ctx.Err()
}

// Submit queues an import without blocking and returns the job ID.
func (p *Pool) Submit(source string, c domain.Catalogue) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return "", ErrStopped
	}

	id := uuid.NewString()
	select {
	case p.tasks <- task{id: id, catalogue: c}:
	default:
		logging.Warn().Str("source", source).Int("entities", c.Size()).Msg("worker: dropping import, queue full")
		return "", ErrQueueFull
	}
	// Workers take p.mu before touching the job, so it exists by then.
	p.jobs[id] = &Job{ID: id, Source: source, State: StateQueued, SubmittedAt: time.Now().UTC()}
	metrics.ImportQueueDepth.Set(float64(len(p.tasks)))
	return id, nil
}

// Status returns a snapshot of the job with the given ID.
func (p *Pool) Status(id string) (Job, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	job, ok := p.jobs[id]
	if !ok {
		return Job{}, domain.ErrNotFound
	}
	return *job, nil
}

func (p *Pool) process(ctx context.Context, t task) {
	p.update(t.id, func(j *Job) {
		j.State = StateRunning
		now := time.Now().UTC()
		j.StartedAt = &now
	})

	report, err := p.importer.ImportCatalogue(ctx, t.catalogue)
	recordReport(report)

	p.update(t.id, func(j *Job) {
		now := time.Now().UTC()
		j.FinishedAt = &now
		j.Report = &report
		if err != nil {
			j.State = StateFailed
			j.Error = err.Error()
		} else {
			j.State = StateDone
		}
	})
	p.retire(t.id)

	if err != nil {
		metrics.ImportJobs.WithLabelValues(string(StateFailed)).Inc()
		logging.Error().Err(err).Str("job", t.id).Msg("worker: import failed")
		return
	}
	metrics.ImportJobs.WithLabelValues(string(StateDone)).Inc()
	logging.Info().
		Str("job", t.id).
		Int("saved", report.Saved()).
		Int("rejected", len(report.Rejected)).
		Msg("worker: import finished")
}

func (p *Pool) update(id string, fn func(*Job)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if job, ok := p.jobs[id]; ok {
		fn(job)
	}
}

// retire forgets the oldest finished jobs beyond maxFinished.
func (p *Pool) retire(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished = append(p.finished, id)
	for len(p.finished) > maxFinished {
		delete(p.jobs, p.finished[0])
		p.finished = p.finished[1:]
	}
}

func recordReport(r services.ImportReport) {
	saved := map[string]int{
		"instrument":          r.Instruments,
		"album":               r.Albums,
		"musician":            r.Musicians,
		"musician_instrument": r.MusicianInstruments,
		"concert":             r.Concerts,
	}
	rejected := map[string]int{}
	for _, rej := range r.Rejected {
		rejected[rej.Kind]++
	}
	metrics.RecordImport(saved, rejected)
}
