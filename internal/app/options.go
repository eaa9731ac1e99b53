package service

import (
	"time"

	"github.com/okian/wrinkles/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of face analysis workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the face job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithFrameDeadline bounds how long a frame waits for its faces. Zero
// disables the deadline.
func WithFrameDeadline(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.frameDeadline = d
		}
	}
}

// WithAnalyzer sets the per-face analyzer.
func WithAnalyzer(a Analyzer) Option {
	return func(s *Service) {
		if a != nil {
			s.analyzer = a
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
