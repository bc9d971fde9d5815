// Package worker runs backfill fetches in the background. Requests are
// queued and load-shed when the queue is full; each job gets its own deadline.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/valstats/matchcache/internal/logic"
	"github.com/valstats/matchcache/internal/models"
)

// Prometheus metrics
var (
	jobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchcache_backfill_jobs_enqueued_total",
		Help: "Total number of backfill jobs accepted",
	})

	jobsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchcache_backfill_jobs_processed_total",
		Help: "Total number of backfill jobs that completed",
	})

	jobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchcache_backfill_jobs_failed_total",
		Help: "Total number of backfill jobs that failed",
	})

	jobsLoadShed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchcache_backfill_jobs_load_shed_total",
		Help: "Total number of backfill jobs dropped because the queue was full",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matchcache_backfill_queue_depth",
		Help: "Current depth of the backfill queue",
	})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "matchcache_backfill_job_duration_seconds",
		Help:    "Duration of backfill jobs",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})
)

// Fetcher runs one fetch.
type Fetcher interface {
	Fetch(ctx context.Context, req logic.FetchRequest) (*models.EnrichedMatch, error)
}

// Job is one queued backfill request
type Job struct {
	ID       string
	Request  logic.FetchRequest
	Enqueued time.Time
}

// JobState is the lifecycle position of a job.
type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// JobStatus is what callers can see of a job.
type JobStatus struct {
	ID       string        `json:"id"`
	State    JobState      `json:"state"`
	Scope    models.Scope  `json:"scope"`
	Player   string        `json:"player"`
	MatchID  string        `json:"match_id,omitempty"`
	Source   models.Source `json:"source,omitempty"`
	Error    string        `json:"error,omitempty"`
	Enqueued time.Time     `json:"enqueued_at"`
	Finished *time.Time    `json:"finished_at,omitempty"`
}

// PoolConfig configures the worker pool
type PoolConfig struct {
	WorkerCount int
	QueueSize   int
	JobTimeout  time.Duration
	// StatusLimit bounds how many job statuses are remembered.
	StatusLimit int
	Fetcher     Fetcher
	Logger      *zap.Logger
}

// Pool manages a pool of workers for background fetches
type Pool struct {
	config   PoolConfig
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger

	mu       sync.Mutex
	statuses map[string]*JobStatus
	order    []string
}

// NewPool creates a new worker pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	if cfg.StatusLimit <= 0 {
		cfg.StatusLimit = 1000
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Pool{
		config:   cfg,
		jobQueue: make(chan Job, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
		statuses: make(map[string]*JobStatus),
	}
}

// Start launches the worker goroutines
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	go p.reportQueueDepth()

	p.logger.Infow("Worker pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
		"jobTimeout", p.config.JobTimeout,
	)
}

// Stop cancels running jobs and waits for the workers to exit.
func (p *Pool) Stop() {
	p.logger.Info("Stopping worker pool...")
	p.cancel()
	close(p.jobQueue)
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

// Enqueue queues a backfill request and returns its job id. It never blocks:
// a full queue or a stopped pool sheds the request and returns false.
func (p *Pool) Enqueue(req logic.FetchRequest) (string, bool) {
	job := Job{
		ID:       uuid.NewString(),
		Request:  req,
		Enqueued: time.Now(),
	}

	// Protect against sending on closed channel
	accepted := false
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warnw("Failed to enqueue job (pool stopped)", "error", r)
			jobsLoadShed.Inc()
			accepted = false
		}
	}()

	if p.ctx != nil && p.ctx.Err() != nil {
		jobsLoadShed.Inc()
		return "", false
	}

	p.track(job)
	select {
	case p.jobQueue <- job:
		jobsEnqueued.Inc()
		accepted = true
	default:
		p.forget(job.ID)
		p.logger.Warnw("Backfill queue full, dropping job", "player", req.Player.String(), "scope", req.Scope.Key())
		jobsLoadShed.Inc()
	}
	if !accepted {
		return "", false
	}
	return job.ID, true
}

// QueueDepth returns current queue size
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

// Status returns a copy of a job's status.
func (p *Pool) Status(id string) (JobStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.statuses[id]
	if !ok {
		return JobStatus{}, false
	}
	return *s, true
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debugw("Worker started", "worker", id)

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.process(id, job)
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) process(workerID int, job Job) {
	p.update(job.ID, func(s *JobStatus) { s.State = JobRunning })

	ctx, cancel := context.WithTimeout(p.ctx, p.config.JobTimeout)
	defer cancel()

	start := time.Now()
	m, err := p.config.Fetcher.Fetch(ctx, job.Request)
	jobDuration.Observe(time.Since(start).Seconds())
	finished := time.Now()

	if err != nil {
		jobsFailed.Inc()
		p.logger.Errorw("Backfill job failed",
			"worker", workerID,
			"job", job.ID,
			"player", job.Request.Player.String(),
			"scope", job.Request.Scope.Key(),
			"error", err,
		)
		p.update(job.ID, func(s *JobStatus) {
			s.State = JobFailed
			s.Error = err.Error()
			s.Finished = &finished
		})
		return
	}

	jobsProcessed.Inc()
	p.update(job.ID, func(s *JobStatus) {
		s.State = JobDone
		s.Finished = &finished
		if m != nil {
			s.MatchID = m.MatchID
			s.Source = m.Source
		}
	})
	p.logger.Infow("Backfill job done",
		"worker", workerID,
		"job", job.ID,
		"player", job.Request.Player.String(),
		"found", m != nil,
		"duration", time.Since(start),
	)
}

func (p *Pool) track(job Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses[job.ID] = &JobStatus{
		ID:       job.ID,
		State:    JobQueued,
		Scope:    job.Request.Scope,
		Player:   job.Request.Player.String(),
		Enqueued: job.Enqueued,
	}
	p.order = append(p.order, job.ID)
	for len(p.order) > p.config.StatusLimit {
		delete(p.statuses, p.order[0])
		p.order = p.order[1:]
	}
}

func (p *Pool) forget(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.statuses, id)
	if n := len(p.order); n > 0 && p.order[n-1] == id {
		p.order = p.order[:n-1]
	}
}

func (p *Pool) update(id string, fn func(*JobStatus)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.statuses[id]; ok {
		fn(s)
	}
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}
