package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobTypeFleetRefresh identifies asynchronous fleet-wide maintenance refreshes.
const JobTypeFleetRefresh = "maintenance.fleet_refresh"

const defaultTracked = 256

// State is the lifecycle stage of a submitted job.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateRetrying  State = "retrying"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Finished reports whether the job will not run again.
func (s State) Finished() bool {
	return s == StateSucceeded || s == StateFailed
}

// Job is one unit of background work. Payload is the JSON encoded request so
// a job never shares memory with the caller that submitted it.
type Job struct {
	ID       string
	Type     string
	Payload  json.RawMessage
	Attempt  int
	Enqueued time.Time
}

// Decode unmarshals the payload of job into T.
func Decode[T any](job Job) (T, error) {
	var payload T
	if len(job.Payload) == 0 {
		return payload, fmt.Errorf("job %s: empty %s payload", job.ID, job.Type)
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return payload, fmt.Errorf("job %s: decode %s payload: %w", job.ID, job.Type, err)
	}
	return payload, nil
}

// Status is the externally visible progress of a job.
type Status struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	State      State      `json:"state"`
	Attempts   int        `json:"attempts"`
	Error      string     `json:"error,omitempty"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	// Tracked caps how many job statuses are remembered for lookups.
	Tracked int
	Logger  *zap.Logger
}

// Queue dispatches jobs to a fixed pool of goroutines, retries failures with
// a delay and keeps the latest job statuses for polling.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs   chan Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	started  bool
	statuses map[string]*Status
	order    []string
}

// NewQueue builds a queue that runs handler for every job.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Tracked <= 0 {
		cfg.Tracked = defaultTracked
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:     name,
		handler:  handler,
		cfg:      cfg,
		logger:   cfg.Logger.With(zap.String("queue", name)),
		jobs:     make(chan Job, cfg.BufferSize),
		statuses: make(map[string]*Status),
	}
}

// Start launches the workers. Later calls are ignored.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop cancels workers and waits for them to exit. Jobs still buffered are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped")
}

// Submit encodes payload, enqueues it as a job of jobType and returns the job id.
func (q *Queue) Submit(jobType string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("queue %s: encode %s payload: %w", q.name, jobType, err)
	}
	job := Job{ID: uuid.NewString(), Type: jobType, Payload: raw}
	if err := q.enqueue(job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// Lookup returns the status of a recently submitted job.
func (q *Queue) Lookup(id string) (Status, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	status, ok := q.statuses[id]
	if !ok {
		return Status{}, false
	}
	return *status, true
}

func (q *Queue) enqueue(job Job) error {
	q.mu.Lock()
	ctx, started := q.ctx, q.started
	q.mu.Unlock()
	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	if job.Attempt == 0 {
		q.track(job)
	}
	select {
	case <-ctx.Done():
		q.untrack(job)
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	default:
		q.untrack(job)
		return fmt.Errorf("queue %s full (%d jobs)", q.name, q.cfg.BufferSize)
	}
}

// track registers a new job and forgets the oldest finished ones past the cap.
func (q *Queue) track(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.statuses[job.ID] = &Status{ID: job.ID, Type: job.Type, State: StateQueued, EnqueuedAt: job.Enqueued}
	q.order = append(q.order, job.ID)
	for len(q.order) > q.cfg.Tracked {
		oldest := q.order[0]
		if status, ok := q.statuses[oldest]; ok && !status.State.Finished() {
			break
		}
		delete(q.statuses, oldest)
		q.order = q.order[1:]
	}
}

// untrack forgets a new job that never made it into the buffer.
func (q *Queue) untrack(job Job) {
	if job.Attempt > 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.statuses, job.ID)
	for i, id := range q.order {
		if id == job.ID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

func (q *Queue) update(id string, fn func(*Status)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if status, ok := q.statuses[id]; ok {
		fn(status)
	}
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.run(workerID, job)
		}
	}
}

func (q *Queue) run(workerID int, job Job) {
	q.update(job.ID, func(s *Status) {
		s.State = StateRunning
		s.Attempts = job.Attempt + 1
	})
	start := time.Now()
	err := q.handler(q.ctx, job)
	log := q.logger.With(
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("worker", workerID),
		zap.Duration("elapsed", time.Since(start)),
	)
	if err == nil {
		q.finish(job.ID, StateSucceeded, nil)
		log.Debug("job completed")
		return
	}

	job.Attempt++
	if job.Attempt > q.cfg.MaxRetries {
		q.finish(job.ID, StateFailed, err)
		log.Error("job exceeded retries", zap.Int("attempts", job.Attempt), zap.Error(err))
		return
	}
	q.update(job.ID, func(s *Status) {
		s.State = StateRetrying
		s.Error = err.Error()
	})
	log.Warn("job failed, retrying", zap.Int("attempt", job.Attempt), zap.Error(err))
	go q.retry(job)
}

func (q *Queue) retry(job Job) {
	timer := time.NewTimer(q.cfg.RetryDelay)
	defer timer.Stop()
	select {
	case <-q.ctx.Done():
		q.finish(job.ID, StateFailed, q.ctx.Err())
	case <-timer.C:
		if err := q.enqueue(job); err != nil {
			q.finish(job.ID, StateFailed, err)
			q.logger.Error("failed to requeue job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

func (q *Queue) finish(id string, state State, err error) {
	now := time.Now().UTC()
	q.update(id, func(s *Status) {
		s.State = state
		s.FinishedAt = &now
		s.Error = ""
		if err != nil {
			s.Error = err.Error()
		}
	})
}
