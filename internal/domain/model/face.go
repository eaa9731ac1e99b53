// Package model contains domain models passed between layers.
package model

import (
	"image"
	"time"

	"github.com/okian/wrinkles/internal/domain/types"
)

// ThresholdPair holds the hysteresis bounds of the edge detector for one region.
// Low admits weak edges connected to strong ones, High seeds strong edges.
type ThresholdPair struct {
	Low  float64 `json:"low" koanf:"low"`
	High float64 `json:"high" koanf:"high"`
}

// EdgeMap is a binary image the size of one region. Pix holds one byte per
// pixel, row-major: 0 for "not edge", 255 for "edge".
type EdgeMap struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Pix    []uint8 `json:"-"`
}

// At reports whether the pixel at (x, y) is an edge.
func (m EdgeMap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x] != 0
}

// Count returns the number of edge pixels.
func (m EdgeMap) Count() int {
	n := 0
	for _, p := range m.Pix {
		if p != 0 {
			n++
		}
	}
	return n
}

// RegionResult is the analysis of one landmark region on a normalized face.
type RegionResult struct {
	Landmark   string          `json:"landmark"`
	TopLeft    image.Point     `json:"top_left"`
	Bounds     image.Rectangle `json:"bounds"`
	Edges      EdgeMap         `json:"edges"`
	Percentage float64         `json:"percentage"`
	Clipped    bool            `json:"clipped"`
	Warning    error           `json:"-"`
}

// WrinkleReport is the per-face result of the analysis pipeline.
type WrinkleReport struct {
	// FaceSize is the canonical size the regions are expressed in.
	FaceSize image.Point       `json:"face_size"`
	Regions  []RegionResult    `json:"regions"`
	Average  float64           `json:"average"`
	Category types.AgeCategory `json:"category"`
	Warnings []string          `json:"warnings,omitempty"`
}

// FaceResult carries the outcome for one detected face within a frame.
// Exactly one of Report and Err is meaningful.
type FaceResult struct {
	Index    int             `json:"index"`
	Box      image.Rectangle `json:"box"`
	Report   WrinkleReport   `json:"report"`
	Err      error           `json:"-"`
	Duration time.Duration   `json:"duration"`
}

// OK reports whether the face was analyzed successfully.
func (r FaceResult) OK() bool { return r.Err == nil }

// FrameReport collects the face results of one captured frame.
type FrameReport struct {
	FrameID    string        `json:"frame_id"`
	Sequence   uint64        `json:"sequence"`
	CapturedAt time.Time     `json:"captured_at"`
	Faces      []FaceResult  `json:"faces"`
	Dropped    bool          `json:"dropped"`
	Duration   time.Duration `json:"duration"`
}
