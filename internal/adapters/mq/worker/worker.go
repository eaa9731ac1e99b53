// Package worker runs face analysis jobs taken off the job queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/okian/wrinkles/internal/adapters/mq/queue"
	"github.com/okian/wrinkles/internal/domain/model"
	"github.com/okian/wrinkles/pkg/logger"
	"github.com/okian/wrinkles/pkg/metrics"
)

// Default worker configuration constants.
const (
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Analyzer measures the wrinkle density of one face crop.
type Analyzer interface {
	Analyze(ctx context.Context, crop gocv.Mat) (model.WrinkleReport, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue() <-chan queue.Job
	Len() int
}

// Worker processes face jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker on top of a Queue and an Analyzer.
type InMemoryWorker struct {
	queue     Queue
	analyzer  Analyzer
	name      string
	processed *atomic.Int64

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, analyzer Analyzer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		analyzer: analyzer,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.OrNop("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop. It returns when ctx is done, the worker is
// shut down, or the queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			w.queue.Len()
			w.process(ctx, &job)
		}
	}
}

// Shutdown gracefully stops the worker. A job in flight is finished first.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// process analyzes one job and always completes it, so the crop is released
// and the frame gets exactly one result for the face.
func (w *InMemoryWorker) process(ctx context.Context, job *queue.Job) {
	start := time.Now()
	res := w.analyze(ctx, job)
	res.Duration = time.Since(start)

	metrics.RecordWorkerProcessingLatency(float64(res.Duration.Milliseconds()))
	if w.processed != nil {
		w.processed.Add(1)
	}
	job.Complete(res)
}

func (w *InMemoryWorker) analyze(ctx context.Context, job *queue.Job) model.FaceResult {
	if job.Abandoned() {
		return model.FaceResult{Err: model.ErrFrameDropped}
	}

	start := time.Now()
	report, err := w.analyzer.Analyze(ctx, job.Crop)
	if err != nil {
		reason := Reason(err)
		metrics.RecordFaceError(reason)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", reason)
		w.logger.Warn(ctx, "face analysis failed",
			logger.String("frameID", job.FrameID),
			logger.Int("face", job.Index),
			logger.Any("box", job.Box),
			logger.Error(err),
		)
		return model.FaceResult{Err: fmt.Errorf("face %d: %w", job.Index, err)}
	}

	metrics.RecordFaceAnalyzed(report.Category.String(), report.Average, float64(time.Since(start).Milliseconds()))
	return model.FaceResult{Report: report}
}

// Reason classifies a face error for metrics labels.
func Reason(err error) string {
	switch {
	case errors.Is(err, model.ErrBackpressure):
		return "backpressure"
	case errors.Is(err, model.ErrFrameDropped):
		return "frame_dropped"
	case errors.Is(err, model.ErrEmptyRegion):
		return "empty_region"
	case errors.Is(err, model.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "analysis_error"
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown chan struct{}
	stopOnce sync.Once

	processed         atomic.Int64
	lastCount         int64
	lastProcessedTime time.Time

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive workerCount means one
// worker per CPU.
func NewPool(workerCount int, q Queue, analyzer Analyzer) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             q,
		shutdown:          make(chan struct{}),
		lastProcessedTime: time.Now(),
		logger:            logger.OrNop("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			q,
			analyzer,
			WithName("worker-"+strconv.Itoa(i)),
			withCounter(&pool.processed),
		)
	}

	metrics.UpdateWorkerActiveCount(workerCount)
	metrics.UpdateWorkerFacesPerSecond(0.0)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of jobs completed since the pool was created.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}

	go p.startMetricsUpdater(ctx)
}

// startMetricsUpdater periodically publishes the pool throughput.
func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

func (p *Pool) updateMetrics() {
	now := time.Now()
	count := p.processed.Load()
	if elapsed := now.Sub(p.lastProcessedTime).Seconds(); elapsed > 0 {
		metrics.UpdateWorkerFacesPerSecond(float64(count-p.lastCount) / elapsed)
	}
	p.lastCount = count
	p.lastProcessedTime = now
}

func (p *Pool) stop() {
	p.stopOnce.Do(func() {
		close(p.shutdown)
		for _, worker := range p.workers {
			worker.stop()
		}
	})
}

// Stop signals every worker to stop and waits for them.
func (p *Pool) Stop() {
	p.stop()

	for _, worker := range p.workers {
		select {
		case <-worker.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue, waits for the workers and completes every job
// still queued with ErrFrameDropped so no crop is leaked.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	p.stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	drained := 0
	if closer, ok := p.queue.(interface{ IsClosed() bool }); ok && closer.IsClosed() {
		for job := range p.queue.Dequeue() {
			job.Complete(model.FaceResult{Err: model.ErrFrameDropped})
			drained++
		}
	}
	if drained > 0 {
		p.logger.Info(ctx, "dropped queued faces on shutdown", logger.Int("faces", drained))
	}
	metrics.UpdateWorkerActiveCount(0)

	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
