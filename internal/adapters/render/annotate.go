// Package render draws analysis results onto frames and presents them in a
// window or writes them to disk.
package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/okian/wrinkles/internal/domain/model"
)

// Overlay colors.
var (
	ColorFace   = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	ColorFailed = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	ColorRegion = color.RGBA{R: 255, G: 200, B: 0, A: 0}
	ColorEdge   = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

const (
	faceThickness   = 2
	regionThickness = 1
	fontScale       = 0.8
	labelMargin     = 10
)

// Options controls what Annotate draws.
type Options struct {
	// Edges paints each region's edge map into the frame.
	Edges bool
}

// Label returns the text shown above a face.
func Label(r model.WrinkleReport) string { //nolint:gocritic // hugeParam: report is a read-only value
	return "Age: " + r.Category.Label()
}

// Annotate draws every face of report onto frame: a box around the face,
// its age label and the five regions mapped back to frame coordinates. A
// dropped frame is left untouched.
func Annotate(frame *gocv.Mat, report model.FrameReport, opts Options) { //nolint:gocritic // hugeParam: report is a read-only value
	if report.Dropped || frame.Empty() {
		return
	}
	for _, face := range report.Faces {
		if face.Box.Empty() {
			continue
		}
		if !face.OK() {
			gocv.Rectangle(frame, face.Box, ColorFailed, faceThickness)
			continue
		}

		gocv.Rectangle(frame, face.Box, ColorFace, faceThickness)
		gocv.PutText(frame, Label(face.Report), labelOrigin(face.Box), gocv.FontHersheySimplex, fontScale, ColorFace, faceThickness)

		size := face.Report.FaceSize
		if size.X <= 0 || size.Y <= 0 {
			continue
		}
		for _, region := range face.Report.Regions {
			gocv.Rectangle(frame, ToFrame(region.Bounds, face.Box, size), ColorRegion, regionThickness)
			if opts.Edges {
				paintEdges(frame, region, face.Box, size)
			}
		}
	}
}

// ToFrame maps a rectangle on the normalized face of the given size back
// onto the face box in the frame.
func ToFrame(rect, box image.Rectangle, faceSize image.Point) image.Rectangle {
	return image.Rectangle{
		Min: toFrame(rect.Min, box, faceSize),
		Max: toFrame(rect.Max, box, faceSize),
	}
}

func toFrame(p image.Point, box image.Rectangle, faceSize image.Point) image.Point {
	return image.Pt(
		box.Min.X+p.X*box.Dx()/faceSize.X,
		box.Min.Y+p.Y*box.Dy()/faceSize.Y,
	)
}

func labelOrigin(box image.Rectangle) image.Point {
	y := box.Min.Y - labelMargin
	if y < 2*labelMargin {
		y = box.Max.Y + 2*labelMargin
	}
	return image.Pt(box.Min.X, y)
}

// paintEdges sets every frame pixel an edge pixel maps to.
func paintEdges(frame *gocv.Mat, region model.RegionResult, box image.Rectangle, faceSize image.Point) {
	if frame.Channels() != 3 {
		return
	}
	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	edges := region.Edges
	for y := 0; y < edges.Height; y++ {
		for x := 0; x < edges.Width; x++ {
			if !edges.At(x, y) {
				continue
			}
			p := toFrame(region.TopLeft.Add(image.Pt(x, y)), box, faceSize)
			if !p.In(bounds) {
				continue
			}
			frame.SetUCharAt(p.Y, p.X*3, ColorEdge.B)
			frame.SetUCharAt(p.Y, p.X*3+1, ColorEdge.G)
			frame.SetUCharAt(p.Y, p.X*3+2, ColorEdge.R)
		}
	}
}
