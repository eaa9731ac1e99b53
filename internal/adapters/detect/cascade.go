// Package detect finds faces with an OpenCV Haar cascade.
package detect

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/okian/wrinkles/internal/domain/model"
)

// Reference detector parameters.
const (
	DefaultScaleFactor  = 1.3
	DefaultMinNeighbors = 5
)

// ErrLoadCascade is returned when the cascade file cannot be loaded.
var ErrLoadCascade = errors.New("load cascade failed")

// Option configures a Cascade.
type Option func(*Cascade)

// WithScaleFactor sets the image pyramid scale step. Values not above 1 are
// ignored.
func WithScaleFactor(f float64) Option {
	return func(c *Cascade) {
		if f > 1 {
			c.scaleFactor = f
		}
	}
}

// WithMinNeighbors sets how many overlapping hits a face needs.
func WithMinNeighbors(n int) Option {
	return func(c *Cascade) {
		if n >= 0 {
			c.minNeighbors = n
		}
	}
}

// WithMinSize drops faces smaller than size.
func WithMinSize(size image.Point) Option {
	return func(c *Cascade) {
		c.minSize = size
	}
}

// Cascade detects frontal faces in grayscale frames. It is not safe for
// concurrent use.
type Cascade struct {
	classifier   gocv.CascadeClassifier
	scaleFactor  float64
	minNeighbors int
	minSize      image.Point
}

// NewCascade loads the cascade XML at path.
func NewCascade(path string, opts ...Option) (*Cascade, error) {
	c := &Cascade{
		classifier:   gocv.NewCascadeClassifier(),
		scaleFactor:  DefaultScaleFactor,
		minNeighbors: DefaultMinNeighbors,
	}
	if !c.classifier.Load(path) {
		_ = c.classifier.Close()
		return nil, fmt.Errorf("%w: %s", ErrLoadCascade, path)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Detect returns the face boxes found in gray.
func (c *Cascade) Detect(gray gocv.Mat) ([]image.Rectangle, error) {
	if gray.Empty() {
		return nil, fmt.Errorf("%w: empty frame", model.ErrInvalidInput)
	}
	if gray.Channels() != 1 {
		return nil, fmt.Errorf("%w: detector wants a grayscale frame, got %d channels", model.ErrInvalidInput, gray.Channels())
	}
	return c.classifier.DetectMultiScaleWithParams(gray, c.scaleFactor, c.minNeighbors, 0, c.minSize, image.Point{}), nil
}

// Close releases the classifier.
func (c *Cascade) Close() error {
	return c.classifier.Close()
}
