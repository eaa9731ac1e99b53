package worker_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/okian/wrinkles/internal/adapters/mq/queue"
	"github.com/okian/wrinkles/internal/adapters/mq/worker"
	"github.com/okian/wrinkles/internal/domain/model"
	"github.com/okian/wrinkles/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeAnalyzer grades crops by width: crops narrower than failBelow fail.
type fakeAnalyzer struct {
	failBelow int
	calls     atomic.Int64
	mu        sync.Mutex
	widths    []int
}

func (a *fakeAnalyzer) Analyze(_ context.Context, crop gocv.Mat) (model.WrinkleReport, error) {
	a.calls.Add(1)
	a.mu.Lock()
	a.widths = append(a.widths, crop.Cols())
	a.mu.Unlock()
	if crop.Cols() < a.failBelow {
		return model.WrinkleReport{}, fmt.Errorf("%w: crop too small", model.ErrInvalidInput)
	}
	return model.WrinkleReport{Average: float64(crop.Cols()), Category: types.Old}, nil
}

func newJob(frameID string, index, width int, done <-chan struct{}, results chan<- model.FaceResult) queue.Job {
	return queue.Job{
		FrameID: frameID,
		Index:   index,
		Box:     image.Rect(0, 0, width, width),
		Crop:    gocv.NewMatWithSize(width, width, gocv.MatTypeCV8UC3),
		Done:    done,
		Results: results,
	}
}

func receive(results <-chan model.FaceResult, n int) []model.FaceResult {
	out := make([]model.FaceResult, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case r := <-results:
			out = append(out, r)
		case <-timeout:
			return out
		}
	}
	return out
}

func TestInMemoryWorker(t *testing.T) {
	Convey("Given a running InMemoryWorker", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		analyzer := &fakeAnalyzer{failBelow: 10}
		w := worker.NewInMemoryWorker(q, analyzer, worker.WithName("test-worker"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		results := make(chan model.FaceResult, 4)

		Convey("When a face job is processed", func() {
			So(q.Enqueue(ctx, newJob("frame-1", 2, 40, nil, results)), ShouldBeNil)
			got := receive(results, 1)

			Convey("Then the report is delivered with the job's index and box", func() {
				So(got, ShouldHaveLength, 1)
				So(got[0].OK(), ShouldBeTrue)
				So(got[0].Index, ShouldEqual, 2)
				So(got[0].Box, ShouldResemble, image.Rect(0, 0, 40, 40))
				So(got[0].Report.Average, ShouldEqual, 40)
			})
		})

		Convey("When analysis fails", func() {
			So(q.Enqueue(ctx, newJob("frame-1", 0, 4, nil, results)), ShouldBeNil)
			got := receive(results, 1)

			Convey("Then the error is delivered for that face only", func() {
				So(got, ShouldHaveLength, 1)
				So(got[0].OK(), ShouldBeFalse)
				So(errors.Is(got[0].Err, model.ErrInvalidInput), ShouldBeTrue)
				So(got[0].Err.Error(), ShouldContainSubstring, "face 0")
			})
		})

		Convey("When the frame has stopped waiting", func() {
			done := make(chan struct{})
			close(done)
			So(q.Enqueue(ctx, newJob("frame-1", 1, 40, done, results)), ShouldBeNil)
			got := receive(results, 1)

			Convey("Then the face is dropped without analysis", func() {
				So(got, ShouldHaveLength, 1)
				So(errors.Is(got[0].Err, model.ErrFrameDropped), ShouldBeTrue)
				So(analyzer.calls.Load(), ShouldEqual, int64(0))
			})
		})

		Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer shutdownCancel()

			Convey("Then it should shutdown gracefully and tolerate a second call", func() {
				So(w.Shutdown(shutdownCtx), ShouldBeNil)
				So(w.Shutdown(shutdownCtx), ShouldBeNil)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	Convey("Given a started worker pool", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		analyzer := &fakeAnalyzer{failBelow: 10}
		pool := worker.NewPool(4, q, analyzer)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		So(pool.Size(), ShouldEqual, 4)

		Convey("When a frame with several faces is enqueued", func() {
			const faces = 20
			results := make(chan model.FaceResult, faces)
			for i := 0; i < faces; i++ {
				width := 20 + i
				if i == 7 {
					width = 5
				}
				So(q.Enqueue(ctx, newJob("frame-1", i, width, nil, results)), ShouldBeNil)
			}
			got := receive(results, faces)

			Convey("Then every face gets exactly one result and failures stay isolated", func() {
				So(got, ShouldHaveLength, faces)
				seen := make(map[int]bool, faces)
				for _, r := range got {
					So(seen[r.Index], ShouldBeFalse)
					seen[r.Index] = true
					if r.Index == 7 {
						So(errors.Is(r.Err, model.ErrInvalidInput), ShouldBeTrue)
					} else {
						So(r.OK(), ShouldBeTrue)
						So(r.Report.Average, ShouldEqual, float64(20+r.Index))
					}
				}
				So(pool.Processed(), ShouldEqual, int64(faces))
			})
		})

		Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()

			Convey("Then it should shutdown gracefully and close the queue", func() {
				So(pool.Shutdown(shutdownCtx), ShouldBeNil)
				So(q.IsClosed(), ShouldBeTrue)
			})
		})
	})

	Convey("Given a pool whose workers have already exited", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		analyzer := &fakeAnalyzer{}
		pool := worker.NewPool(2, q, analyzer)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		pool.Start(ctx)
		time.Sleep(20 * time.Millisecond)

		results := make(chan model.FaceResult, 3)
		for i := 0; i < 3; i++ {
			So(q.Enqueue(context.Background(), newJob("frame-1", i, 20, nil, results)), ShouldBeNil)
		}

		Convey("When the pool shuts down", func() {
			err := pool.Shutdown(context.Background())
			got := receive(results, 3)

			Convey("Then queued faces are completed as dropped", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 3)
				for _, r := range got {
					So(errors.Is(r.Err, model.ErrFrameDropped), ShouldBeTrue)
				}
				So(analyzer.calls.Load(), ShouldEqual, int64(0))
			})
		})
	})

	Convey("Given a pool created with no worker count", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), &fakeAnalyzer{})

		Convey("Then it sizes itself from the CPU count and can be stopped", func() {
			So(pool.Size(), ShouldBeGreaterThan, 0)
			pool.Start(context.Background())
			pool.Stop()
			So(pool.Shutdown(context.Background()), ShouldBeNil)
		})
	})
}

func TestReason(t *testing.T) {
	Convey("Given face errors", t, func() {
		cases := []struct {
			err  error
			want string
		}{
			{model.ErrBackpressure, "backpressure"},
			{fmt.Errorf("x: %w", model.ErrFrameDropped), "frame_dropped"},
			{fmt.Errorf("%w: %w", model.ErrRegionOutOfBounds, model.ErrEmptyRegion), "empty_region"},
			{model.ErrInvalidInput, "invalid_input"},
			{context.DeadlineExceeded, "cancelled"},
			{errors.New("boom"), "analysis_error"},
		}
		for _, c := range cases {
			So(worker.Reason(c.err), ShouldEqual, c.want)
		}
	})
}
