// Package landmark places the five fixed wrinkle regions on a normalized
// face. Regions are geometric boxes at fixed offsets from the face center,
// expressed in canonical pixel units; pixel content is never inspected.
package landmark

import (
	"fmt"
	"image"

	"github.com/okian/wrinkles/internal/domain/model"
)

// Landmark names, in layout order.
const (
	LeftEye    = "left_eye"
	RightEye   = "right_eye"
	Forehead   = "forehead"
	LeftCheek  = "left_cheek"
	RightCheek = "right_cheek"
)

// Count is the number of landmarks in the layout.
const Count = 5

// Landmark describes a box of Width x Height centered at (DX, DY) from the
// face center.
type Landmark struct {
	Name   string
	DX     int
	DY     int
	Width  int
	Height int
}

// HalfWidth is Width/2, truncated.
func (l Landmark) HalfWidth() int { return l.Width / 2 }

// HalfHeight is Height/2, truncated.
func (l Landmark) HalfHeight() int { return l.Height / 2 }

// layout is the fixed policy. Order matters: thresholds pair with it by position.
var layout = [Count]Landmark{
	{Name: LeftEye, DX: -50, DY: -7, Width: 50, Height: 15},
	{Name: RightEye, DX: 45, DY: -7, Width: 50, Height: 15},
	{Name: Forehead, DX: 0, DY: -90, Width: 120, Height: 55},
	{Name: LeftCheek, DX: -60, DY: 25, Width: 35, Height: 15},
	{Name: RightCheek, DX: 70, DY: 25, Width: 35, Height: 15},
}

// Layout returns a copy of the ordered landmark policy.
func Layout() []Landmark {
	out := make([]Landmark, Count)
	copy(out, layout[:])
	return out
}

// Names returns the landmark names in layout order.
func Names() []string {
	names := make([]string, Count)
	for i, l := range layout {
		names[i] = l.Name
	}
	return names
}

// Region is a landmark placed on a face of a concrete size.
type Region struct {
	Landmark Landmark
	Center   image.Point
	// Rect is [cx-hw, cx+hw) x [cy-hh, cy+hh). It may extend past the face.
	Rect image.Rectangle
}

// Place positions l on a face of the given size.
func Place(l Landmark, faceWidth, faceHeight int) Region {
	c := image.Pt(faceWidth/2+l.DX, faceHeight/2+l.DY)
	hw, hh := l.HalfWidth(), l.HalfHeight()
	return Region{
		Landmark: l,
		Center:   c,
		Rect:     image.Rect(c.X-hw, c.Y-hh, c.X+hw, c.Y+hh),
	}
}

// Compute returns the five regions for a face of the given size, in layout
// order. It is a pure function of its arguments.
func Compute(faceWidth, faceHeight int) []Region {
	regions := make([]Region, Count)
	for i, l := range layout {
		regions[i] = Place(l, faceWidth, faceHeight)
	}
	return regions
}

// Validate reports every region that is not fully inside bounds. It does not
// clip; the returned error wraps model.ErrRegionOutOfBounds.
func Validate(regions []Region, bounds image.Rectangle) error {
	var outside []string
	for _, r := range regions {
		if !r.Rect.In(bounds) {
			outside = append(outside, fmt.Sprintf("%s %v", r.Landmark.Name, r.Rect))
		}
	}
	if len(outside) > 0 {
		return fmt.Errorf("%w: %v not within %v", model.ErrRegionOutOfBounds, outside, bounds)
	}
	return nil
}
