package service

import (
	"context"
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/okian/wrinkles/internal/domain/model"
	"github.com/okian/wrinkles/pkg/logger"
	"github.com/okian/wrinkles/pkg/metrics"
)

// Run drives the frame loop until the source is exhausted, the sink asks to
// stop or ctx is done. Frames are handled strictly one after another.
//
// Run takes ownership of src, det and sink and closes all three on every
// exit path. It returns an error wrapping model.ErrSourceExhausted when the
// source ends, and nil when the sink requested a stop or ctx was cancelled.
func (s *Service) Run(ctx context.Context, src FrameSource, det FaceDetector, sink Sink) (err error) {
	defer func() {
		err = errors.Join(err, closeAll(src, det, sink))
	}()

	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	frame := gocv.NewMat()
	defer frame.Close()
	gray := gocv.NewMat()
	defer gray.Close()

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := src.Read(ctx, &frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Info(ctx, "frame source finished", logger.Error(err))
			if errors.Is(err, model.ErrSourceExhausted) {
				return err
			}
			return fmt.Errorf("%w: %w", model.ErrSourceExhausted, err)
		}

		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
		boxes, err := det.Detect(gray)
		if err != nil {
			metrics.RecordErrorByComponent("detector", "detect_failed")
			s.logger.Error(ctx, "face detection failed", logger.Error(err))
			boxes = nil
		}

		report, err := s.ProcessFrame(ctx, frame, boxes)
		if err != nil && !errors.Is(err, model.ErrFrameDropped) {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("process frame: %w", err)
		}

		if err := sink.Render(ctx, &frame, report); err != nil {
			if errors.Is(err, model.ErrStopRequested) {
				s.logger.Info(ctx, "stop requested by sink")
				return nil
			}
			return fmt.Errorf("render frame: %w", err)
		}
	}
}

func closeAll(closers ...interface{ Close() error }) error {
	var errs []error
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
