package service

import (
	"context"
	"image"

	"gocv.io/x/gocv"

	"github.com/okian/wrinkles/internal/domain/model"
)

// FrameSource delivers BGR frames. Read fills frame and returns an error
// wrapping model.ErrSourceExhausted once no more frames can be read.
type FrameSource interface {
	Read(ctx context.Context, frame *gocv.Mat) error
	Close() error
}

// FaceDetector finds face bounding boxes in a grayscale frame.
type FaceDetector interface {
	Detect(gray gocv.Mat) ([]image.Rectangle, error)
	Close() error
}

// Sink presents a frame together with its analysis. Render returns an error
// wrapping model.ErrStopRequested when the viewer asks to stop.
type Sink interface {
	Render(ctx context.Context, frame *gocv.Mat, report model.FrameReport) error
	Close() error
}

// Analyzer measures the wrinkle density of one face crop.
type Analyzer interface {
	Analyze(ctx context.Context, crop gocv.Mat) (model.WrinkleReport, error)
}
