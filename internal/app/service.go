// Package service orchestrates the live analysis loop: it reads frames,
// detects faces, fans the faces out to the worker pool and hands the joined
// results to a sink.
package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	facequeue "github.com/okian/wrinkles/internal/adapters/mq/queue"
	workerpool "github.com/okian/wrinkles/internal/adapters/mq/worker"
	"github.com/okian/wrinkles/internal/domain/model"
	"github.com/okian/wrinkles/internal/domain/pipeline"
	"github.com/okian/wrinkles/pkg/logger"
	"github.com/okian/wrinkles/pkg/metrics"
)

const (
	defaultQueueSize     = 64
	defaultFrameDeadline = 500 * time.Millisecond
	stopTimeout          = 10 * time.Second
)

// Service runs frames through the face analysis pipeline.
type Service struct {
	mu sync.RWMutex

	analyzer Analyzer
	queue    *facequeue.InMemoryQueue
	pool     *workerpool.Pool

	workerCount   int
	queueSize     int
	frameDeadline time.Duration

	started bool

	sequence        atomic.Uint64
	framesProcessed atomic.Int64
	framesDropped   atomic.Int64
	facesAnalyzed   atomic.Int64
	facesFailed     atomic.Int64
	latest          atomic.Pointer[model.FrameReport]

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     defaultQueueSize,
		frameDeadline: defaultFrameDeadline,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.OrNop("service")
	}
	if s.analyzer == nil {
		s.analyzer = pipeline.New(pipeline.WithLogger(s.logger.Named("pipeline")))
	}
	return s
}

// Start creates the job queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.queue = facequeue.NewInMemoryQueue(facequeue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.analyzer)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "wrinkle service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("frameDeadline", s.frameDeadline),
	)
	return nil
}

// Stop shuts the worker pool down. Faces still queued are dropped.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "wrinkle service stopped")
}

// ProcessFrame analyzes every face box of frame and joins the results.
//
// Each face is cropped out of the frame into its own buffer, so the caller
// may reuse frame as soon as ProcessFrame returns. A face that cannot be
// analyzed carries its own error in the report; other faces are unaffected.
// If the frame deadline passes first, the report is marked Dropped, carries
// no faces and the returned error wraps model.ErrFrameDropped.
func (s *Service) ProcessFrame(ctx context.Context, frame gocv.Mat, boxes []image.Rectangle) (model.FrameReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()
	if !s.started {
		return model.FrameReport{CapturedAt: start}, ErrNotStarted
	}
	if frame.Empty() {
		return model.FrameReport{CapturedAt: start}, fmt.Errorf("%w: empty frame", model.ErrInvalidInput)
	}
	report := model.FrameReport{
		FrameID:    uuid.NewString(),
		Sequence:   s.sequence.Add(1),
		CapturedAt: start,
	}
	metrics.RecordFacesDetected(len(boxes))

	frameCtx, cancel := s.frameContext(ctx)
	defer cancel()

	faces := make([]model.FaceResult, len(boxes))
	results := make(chan model.FaceResult, len(boxes))
	done := make(chan struct{})
	defer close(done)

	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	pending := 0
	for i, box := range boxes {
		faces[i] = model.FaceResult{Index: i, Box: box}

		clipped, err := cropBox(box, bounds)
		if err != nil {
			faces[i].Err = err
			s.faceFailed(ctx, report.FrameID, i, err)
			continue
		}
		faces[i].Box = clipped

		region := frame.Region(clipped)
		crop := region.Clone()
		_ = region.Close()

		job := facequeue.Job{
			FrameID: report.FrameID,
			Index:   i,
			Box:     clipped,
			Crop:    crop,
			Done:    done,
			Results: results,
		}
		if err := s.queue.Enqueue(frameCtx, job); err != nil {
			_ = crop.Close()
			if errors.Is(err, facequeue.ErrQueueFull) || errors.Is(err, facequeue.ErrQueueClosed) {
				err = fmt.Errorf("%w: %w", model.ErrBackpressure, err)
			}
			faces[i].Err = fmt.Errorf("face %d: %w", i, err)
			s.faceFailed(ctx, report.FrameID, i, faces[i].Err)
			continue
		}
		pending++
	}

	for received := 0; received < pending; received++ {
		select {
		case res := <-results:
			faces[res.Index] = res
			if res.OK() {
				s.facesAnalyzed.Add(1)
			} else {
				s.facesFailed.Add(1)
			}
		case <-frameCtx.Done():
			return s.drop(ctx, report, start, frameCtx.Err())
		}
	}

	report.Faces = faces
	report.Duration = time.Since(start)
	s.latest.Store(&report)
	s.framesProcessed.Add(1)
	metrics.RecordFrameProcessed(float64(report.Duration.Milliseconds()))
	return report, nil
}

func (s *Service) frameContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.frameDeadline > 0 {
		return context.WithTimeout(ctx, s.frameDeadline)
	}
	return context.WithCancel(ctx)
}

// drop discards every face result of the frame.
func (s *Service) drop(ctx context.Context, report model.FrameReport, start time.Time, cause error) (model.FrameReport, error) {
	report.Faces = nil
	report.Dropped = true
	report.Duration = time.Since(start)
	s.latest.Store(&report)
	s.framesDropped.Add(1)
	metrics.RecordFrameDropped()

	if ctx.Err() != nil {
		return report, fmt.Errorf("frame %d: %w", report.Sequence, ctx.Err())
	}
	s.logger.Warn(ctx, "frame deadline missed, results dropped",
		logger.String("frameID", report.FrameID),
		logger.Uint64("sequence", report.Sequence),
		logger.Duration("deadline", s.frameDeadline),
	)
	return report, fmt.Errorf("frame %d: %w: %w", report.Sequence, model.ErrFrameDropped, cause)
}

func (s *Service) faceFailed(ctx context.Context, frameID string, index int, err error) {
	s.facesFailed.Add(1)
	metrics.RecordFaceError(workerpool.Reason(err))
	s.logger.Warn(ctx, "face skipped",
		logger.String("frameID", frameID),
		logger.Int("face", index),
		logger.Error(err),
	)
}

// cropBox validates a detector box and clips it to the frame, the way an
// array slice of the frame would.
func cropBox(box, bounds image.Rectangle) (image.Rectangle, error) {
	if box.Dx() <= 0 || box.Dy() <= 0 {
		return image.Rectangle{}, fmt.Errorf("%w: malformed face box %v", model.ErrInvalidInput, box)
	}
	clipped := box.Intersect(bounds)
	if clipped.Empty() {
		return image.Rectangle{}, fmt.Errorf("%w: face box %v outside frame %v", model.ErrInvalidInput, box, bounds)
	}
	return clipped, nil
}

// LatestFrame returns the report of the most recent frame, if any.
func (s *Service) LatestFrame() (model.FrameReport, bool) {
	latest := s.latest.Load()
	if latest == nil {
		return model.FrameReport{}, false
	}
	return *latest, true
}

// AnalyzeCrop analyzes a single face crop on the worker pool and waits for
// the result. The crop is copied; the caller keeps ownership of it.
func (s *Service) AnalyzeCrop(ctx context.Context, crop gocv.Mat) (model.WrinkleReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return model.WrinkleReport{}, ErrNotStarted
	}
	if crop.Empty() {
		return model.WrinkleReport{}, fmt.Errorf("%w: empty crop", model.ErrInvalidInput)
	}

	results := make(chan model.FaceResult, 1)
	job := facequeue.Job{
		FrameID: uuid.NewString(),
		Box:     image.Rect(0, 0, crop.Cols(), crop.Rows()),
		Crop:    crop.Clone(),
		Done:    ctx.Done(),
		Results: results,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		_ = job.Crop.Close()
		if errors.Is(err, facequeue.ErrQueueFull) || errors.Is(err, facequeue.ErrQueueClosed) {
			err = fmt.Errorf("%w: %w", model.ErrBackpressure, err)
		}
		metrics.RecordFaceError(workerpool.Reason(err))
		return model.WrinkleReport{}, err
	}

	select {
	case res := <-results:
		if res.Err != nil {
			s.facesFailed.Add(1)
			return model.WrinkleReport{}, res.Err
		}
		s.facesAnalyzed.Add(1)
		return res.Report, nil
	case <-ctx.Done():
		return model.WrinkleReport{}, fmt.Errorf("analyze crop: %w", ctx.Err())
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"frameDeadlineMs": s.frameDeadline.Milliseconds(),
		"framesSeen":      s.sequence.Load(),
		"framesProcessed": s.framesProcessed.Load(),
		"framesDropped":   s.framesDropped.Load(),
		"facesAnalyzed":   s.facesAnalyzed.Load(),
		"facesFailed":     s.facesFailed.Load(),
	}
	if latest := s.latest.Load(); latest != nil {
		stats["lastFrameID"] = latest.FrameID
	}

	if s.started {
		stats["queueLength"] = s.queue.Len()
		stats["facesCompleted"] = s.pool.Processed()
	}

	return stats
}
