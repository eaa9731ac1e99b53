package render_test

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"

	"github.com/okian/wrinkles/internal/adapters/render"
	"github.com/okian/wrinkles/internal/domain/model"
	"github.com/okian/wrinkles/internal/domain/types"
	"github.com/okian/wrinkles/internal/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func bgrAt(m *gocv.Mat, x, y int) [3]uint8 {
	return [3]uint8{m.GetUCharAt(y, x*3), m.GetUCharAt(y, x*3+1), m.GetUCharAt(y, x*3+2)}
}

func okFace(box image.Rectangle, regions ...model.RegionResult) model.FaceResult {
	return model.FaceResult{
		Box: box,
		Report: model.WrinkleReport{
			FaceSize: image.Pt(250, 250),
			Regions:  regions,
			Category: types.MiddleAged,
		},
	}
}

func TestToFrame(t *testing.T) {
	Convey("Given a 100x100 face box at (50,50)", t, func() {
		box := image.Rect(50, 50, 150, 150)
		size := image.Pt(250, 250)

		Convey("Then the whole face maps onto the box", func() {
			So(render.ToFrame(image.Rect(0, 0, 250, 250), box, size), ShouldResemble, box)
		})

		Convey("Then a forehead region scales down and shifts", func() {
			So(render.ToFrame(image.Rect(65, 8, 185, 62), box, size), ShouldResemble, image.Rect(76, 53, 124, 74))
		})
	})
}

func TestLabel(t *testing.T) {
	Convey("Labels carry the category", t, func() {
		So(render.Label(model.WrinkleReport{Category: types.Young}), ShouldEqual, "Age: Young")
		So(render.Label(model.WrinkleReport{Category: types.Old}), ShouldEqual, "Age: Old")
	})
}

func TestAnnotate(t *testing.T) {
	Convey("Given a black frame", t, func() {
		frame := testutil.Flat(300, 300, 0)
		defer frame.Close()

		Convey("When a successful face is drawn", func() {
			report := model.FrameReport{Faces: []model.FaceResult{okFace(image.Rect(50, 50, 150, 150))}}
			render.Annotate(&frame, report, render.Options{})

			Convey("Then its box is green", func() {
				So(bgrAt(&frame, 100, 50), ShouldResemble, [3]uint8{0, 255, 0})
			})
		})

		Convey("When a failed face is drawn", func() {
			report := model.FrameReport{Faces: []model.FaceResult{{
				Box: image.Rect(50, 50, 150, 150),
				Err: model.ErrEmptyRegion,
			}}}
			render.Annotate(&frame, report, render.Options{})

			Convey("Then its box is red", func() {
				So(bgrAt(&frame, 100, 50), ShouldResemble, [3]uint8{0, 0, 255})
			})
		})

		Convey("When the frame was dropped", func() {
			report := model.FrameReport{
				Dropped: true,
				Faces:   []model.FaceResult{okFace(image.Rect(50, 50, 150, 150))},
			}
			render.Annotate(&frame, report, render.Options{})

			Convey("Then nothing is drawn", func() {
				So(bgrAt(&frame, 100, 50), ShouldResemble, [3]uint8{0, 0, 0})
			})
		})

		Convey("When a region carries an edge pixel", func() {
			edges := model.EdgeMap{Width: 40, Height: 20, Pix: make([]uint8, 40*20)}
			edges.Pix[10*40+10] = 255
			region := model.RegionResult{
				Landmark: "forehead",
				TopLeft:  image.Pt(100, 100),
				Bounds:   image.Rect(100, 100, 140, 120),
				Edges:    edges,
			}
			report := model.FrameReport{Faces: []model.FaceResult{okFace(image.Rect(0, 0, 250, 250), region)}}

			Convey("Then it is painted only with edges enabled", func() {
				render.Annotate(&frame, report, render.Options{})
				So(bgrAt(&frame, 110, 110), ShouldResemble, [3]uint8{0, 0, 0})

				render.Annotate(&frame, report, render.Options{Edges: true})
				So(bgrAt(&frame, 110, 110), ShouldResemble, [3]uint8{255, 255, 255})
			})

			Convey("Then the region outline is drawn", func() {
				render.Annotate(&frame, report, render.Options{})
				So(bgrAt(&frame, 120, 100), ShouldNotResemble, [3]uint8{0, 0, 0})
			})
		})

		Convey("When a face box is malformed", func() {
			report := model.FrameReport{Faces: []model.FaceResult{{
				Box: image.Rectangle{Min: image.Pt(10, 10), Max: image.Pt(10, 40)},
				Err: errors.New("boom"),
			}}}

			Convey("Then it is skipped", func() {
				So(func() { render.Annotate(&frame, report, render.Options{}) }, ShouldNotPanic)
				So(bgrAt(&frame, 10, 20), ShouldResemble, [3]uint8{0, 0, 0})
			})
		})
	})
}
