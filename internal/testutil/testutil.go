// Package testutil provides synthetic face fixtures shared by tests.
//
// Fixtures are plain BGR Mats owned by the caller, who must Close them.
package testutil

import (
	"gocv.io/x/gocv"
)

// GrayFunc returns the gray level of the pixel at (x, y).
type GrayFunc func(x, y int) uint8

// ColorFunc returns the blue, green and red levels of the pixel at (x, y).
type ColorFunc func(x, y int) (b, g, r uint8)

// NewColor builds a width x height BGR Mat with per-channel levels from f.
func NewColor(width, height int, f ColorFunc) gocv.Mat {
	data := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 3
			data[i], data[i+1], data[i+2] = f(x, y)
		}
	}
	// NewMatFromBytes borrows data; clone so the Mat owns its pixels.
	borrowed, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, data)
	if err != nil {
		panic(err)
	}
	defer borrowed.Close()
	return borrowed.Clone()
}

// NewBGR builds a width x height BGR Mat whose three channels all carry
// the gray level returned by f.
func NewBGR(width, height int, f GrayFunc) gocv.Mat {
	return NewColor(width, height, func(x, y int) (uint8, uint8, uint8) {
		v := f(x, y)
		return v, v, v
	})
}

// Flat builds a texture-free face of uniform gray level v.
func Flat(width, height int, v uint8) gocv.Mat {
	return NewBGR(width, height, func(int, int) uint8 { return v })
}

// Checkerboard builds a black and white checkerboard with square cells of
// the given size in pixels.
func Checkerboard(width, height, cell int) gocv.Mat {
	return NewBGR(width, height, func(x, y int) uint8 {
		if (x/cell+y/cell)%2 == 0 {
			return 0
		}
		return 255
	})
}

// Gradient builds a smooth horizontal ramp, which has no hysteresis edges
// at the reference thresholds.
func Gradient(width, height int) gocv.Mat {
	return NewBGR(width, height, func(x, _ int) uint8 {
		return uint8(x * 255 / max(width-1, 1))
	})
}

// BlueStripes builds vertical stripes of the given width in pixels where
// only the blue channel changes (20 and 220); green and red stay at 100.
func BlueStripes(width, height, stripe int) gocv.Mat {
	return NewColor(width, height, func(x, _ int) (uint8, uint8, uint8) {
		if (x/stripe)%2 == 0 {
			return 20, 100, 100
		}
		return 220, 100, 100
	})
}
