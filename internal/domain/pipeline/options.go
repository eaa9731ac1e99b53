package pipeline

import (
	"github.com/okian/wrinkles/internal/domain/landmark"
	"github.com/okian/wrinkles/internal/domain/model"
	"github.com/okian/wrinkles/pkg/logger"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCanonicalSize sets the size every face crop is normalized to.
// Non-positive sizes are ignored.
func WithCanonicalSize(width, height int) Option {
	return func(p *Pipeline) {
		if width > 0 && height > 0 {
			p.width = width
			p.height = height
		}
	}
}

// WithThresholds sets the per-region edge thresholds in landmark layout
// order. A slice of the wrong length is ignored.
func WithThresholds(thresholds []model.ThresholdPair) Option {
	return func(p *Pipeline) {
		if len(thresholds) == landmark.Count {
			p.thresholds = append([]model.ThresholdPair(nil), thresholds...)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}
