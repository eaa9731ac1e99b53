package api

import (
	"image"
	"time"

	"github.com/okian/wrinkles/internal/domain/model"
	"github.com/okian/wrinkles/internal/domain/types"
)

// boxView is a rectangle as x, y, width, height.
type boxView struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func newBoxView(r image.Rectangle) boxView {
	return boxView{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

type regionView struct {
	Landmark   string  `json:"landmark"`
	Bounds     boxView `json:"bounds"`
	Percentage float64 `json:"edge_percentage"`
	Clipped    bool    `json:"clipped,omitempty"`
}

type reportView struct {
	Average  float64           `json:"average"`
	Category types.AgeCategory `json:"category"`
	Label    string            `json:"label"`
	Regions  []regionView      `json:"regions"`
	Warnings []string          `json:"warnings,omitempty"`
}

func newReportView(r model.WrinkleReport) reportView { //nolint:gocritic // hugeParam: report is a read-only value
	v := reportView{
		Average:  r.Average,
		Category: r.Category,
		Label:    r.Category.Label(),
		Regions:  make([]regionView, len(r.Regions)),
		Warnings: r.Warnings,
	}
	for i, reg := range r.Regions {
		v.Regions[i] = regionView{
			Landmark:   reg.Landmark,
			Bounds:     newBoxView(reg.Bounds),
			Percentage: reg.Percentage,
			Clipped:    reg.Clipped,
		}
	}
	return v
}

type faceView struct {
	Index      int         `json:"index"`
	Box        boxView     `json:"box"`
	Report     *reportView `json:"report,omitempty"`
	Error      string      `json:"error,omitempty"`
	DurationMs int64       `json:"duration_ms"`
}

type frameView struct {
	FrameID    string     `json:"frame_id"`
	Sequence   uint64     `json:"sequence"`
	CapturedAt time.Time  `json:"captured_at"`
	Dropped    bool       `json:"dropped"`
	DurationMs int64      `json:"duration_ms"`
	Faces      []faceView `json:"faces"`
}

func newFrameView(f model.FrameReport) frameView { //nolint:gocritic // hugeParam: report is a read-only value
	v := frameView{
		FrameID:    f.FrameID,
		Sequence:   f.Sequence,
		CapturedAt: f.CapturedAt,
		Dropped:    f.Dropped,
		DurationMs: f.Duration.Milliseconds(),
		Faces:      make([]faceView, len(f.Faces)),
	}
	for i, face := range f.Faces {
		fv := faceView{
			Index:      face.Index,
			Box:        newBoxView(face.Box),
			DurationMs: face.Duration.Milliseconds(),
		}
		if face.OK() {
			rv := newReportView(face.Report)
			fv.Report = &rv
		} else {
			fv.Error = face.Err.Error()
		}
		v.Faces[i] = fv
	}
	return v
}
