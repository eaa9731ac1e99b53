// Package edge measures wrinkle density inside a landmark region with a
// double-threshold (Canny) edge detector.
package edge

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"

	"github.com/okian/wrinkles/internal/domain/landmark"
	"github.com/okian/wrinkles/internal/domain/model"
	"github.com/okian/wrinkles/internal/domain/normalize"
)

// DefaultThresholds returns the reference threshold pairs in landmark
// layout order. The low values are used as given: they admit nearly every
// weak gradient that is connected to a strong edge.
func DefaultThresholds() []model.ThresholdPair {
	return []model.ThresholdPair{
		{Low: 0.10, High: 155}, // left eye
		{Low: 0.10, High: 160}, // right eye
		{Low: 0.08, High: 170}, // forehead
		{Low: 0.06, High: 180}, // left cheek
		{Low: 0.06, High: 190}, // right cheek
	}
}

// ValidateThresholds checks a threshold pair for use with the detector.
func ValidateThresholds(t model.ThresholdPair) error {
	switch {
	case math.IsNaN(t.Low) || math.IsNaN(t.High):
		return fmt.Errorf("%w: NaN threshold", model.ErrInvalidInput)
	case t.Low < 0 || t.High < 0:
		return fmt.Errorf("%w: negative threshold (%g, %g)", model.ErrInvalidInput, t.Low, t.High)
	case t.Low > t.High:
		return fmt.Errorf("%w: low threshold %g above high threshold %g", model.ErrInvalidInput, t.Low, t.High)
	}
	return nil
}

// AnalyzeRegion extracts region from face, runs the edge detector with
// thresholds over its BGR pixels and returns the edge map together
// with the percentage of edge pixels.
//
// A region reaching past the face is clipped to the face bounds; the result
// is then marked Clipped and carries a Warning wrapping
// model.ErrRegionOutOfBounds. A region with nothing left after clipping is
// an error. The face is only read.
func AnalyzeRegion(face *normalize.Face, region landmark.Region, thresholds model.ThresholdPair) (model.RegionResult, error) {
	if face == nil {
		return model.RegionResult{}, fmt.Errorf("%w: nil face", model.ErrInvalidInput)
	}
	if err := ValidateThresholds(thresholds); err != nil {
		return model.RegionResult{}, fmt.Errorf("%s: %w", region.Landmark.Name, err)
	}

	rect := region.Rect.Intersect(face.Bounds())
	if rect.Empty() {
		return model.RegionResult{}, fmt.Errorf("%w: %w: %s %v outside %v",
			model.ErrRegionOutOfBounds, model.ErrEmptyRegion, region.Landmark.Name, region.Rect, face.Bounds())
	}

	res := model.RegionResult{
		Landmark: region.Landmark.Name,
		TopLeft:  rect.Min,
		Bounds:   rect,
	}
	if rect != region.Rect {
		res.Clipped = true
		res.Warning = fmt.Errorf("%w: %s %v clipped to %v",
			model.ErrRegionOutOfBounds, region.Landmark.Name, region.Rect, rect)
	}

	roi := face.Mat().Region(rect)
	defer roi.Close()

	// Canny on a BGR input takes the strongest gradient over the channels.
	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(roi, &edges, float32(thresholds.Low), float32(thresholds.High))

	area := rect.Dx() * rect.Dy()
	count := gocv.CountNonZero(edges)
	res.Percentage = float64(count) / float64(area) * 100
	res.Edges = model.EdgeMap{
		Width:  edges.Cols(),
		Height: edges.Rows(),
		Pix:    edges.ToBytes(),
	}
	return res, nil
}
