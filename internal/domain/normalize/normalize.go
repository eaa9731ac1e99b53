// Package normalize resizes face crops to the canonical size used by the
// landmark layout, so that region geometry is independent of how large the
// face appeared in the frame.
package normalize

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/okian/wrinkles/internal/domain/model"
)

// Reference canonical size.
const (
	DefaultWidth  = 250
	DefaultHeight = 250
)

// bgrChannels is the channel count of a color face crop.
const bgrChannels = 3

// Face is a face crop resized to the canonical size. It owns its Mat.
type Face struct {
	mat gocv.Mat
}

// Mat returns the underlying BGR image. The Face keeps ownership; callers
// must not Close or resize it.
func (f *Face) Mat() *gocv.Mat { return &f.mat }

// Width returns the canonical width.
func (f *Face) Width() int { return f.mat.Cols() }

// Height returns the canonical height.
func (f *Face) Height() int { return f.mat.Rows() }

// Bounds returns the pixel bounds [0,w)x[0,h).
func (f *Face) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.mat.Cols(), f.mat.Rows())
}

// Close releases the underlying Mat.
func (f *Face) Close() error {
	return f.mat.Close()
}

// Wrap adopts an already canonical BGR Mat as a Face without resizing.
// The Face takes ownership of m.
func Wrap(m gocv.Mat) (*Face, error) {
	if err := checkCrop(m); err != nil {
		return nil, err
	}
	return &Face{mat: m}, nil
}

// Normalize resizes crop to width x height using area interpolation. Aspect
// ratio is not preserved. The crop is left untouched; the caller keeps
// ownership of it and must Close the returned Face.
func Normalize(crop gocv.Mat, width, height int) (*Face, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: target size %dx%d", model.ErrInvalidInput, width, height)
	}
	if err := checkCrop(crop); err != nil {
		return nil, err
	}

	dst := gocv.NewMat()
	gocv.Resize(crop, &dst, image.Pt(width, height), 0, 0, gocv.InterpolationArea)
	if dst.Empty() || dst.Cols() != width || dst.Rows() != height {
		_ = dst.Close()
		return nil, fmt.Errorf("%w: resize produced %dx%d, want %dx%d",
			model.ErrInvalidInput, dst.Cols(), dst.Rows(), width, height)
	}
	return &Face{mat: dst}, nil
}

func checkCrop(m gocv.Mat) error {
	if m.Empty() || m.Cols() <= 0 || m.Rows() <= 0 {
		return fmt.Errorf("%w: empty face crop", model.ErrInvalidInput)
	}
	if m.Channels() != bgrChannels {
		return fmt.Errorf("%w: face crop has %d channels, want %d", model.ErrInvalidInput, m.Channels(), bgrChannels)
	}
	return nil
}
