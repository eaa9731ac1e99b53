package landmark_test

import (
	"errors"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/okian/wrinkles/internal/domain/landmark"
	"github.com/okian/wrinkles/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCompute_ReferenceSize(t *testing.T) {
	Convey("Given the reference canonical size 250x250", t, func() {
		regions := landmark.Compute(250, 250)

		Convey("Then five regions are returned in fixed order", func() {
			So(len(regions), ShouldEqual, landmark.Count)
			names := make([]string, 0, len(regions))
			for _, r := range regions {
				names = append(names, r.Landmark.Name)
			}
			So(names, ShouldResemble, []string{
				landmark.LeftEye, landmark.RightEye, landmark.Forehead, landmark.LeftCheek, landmark.RightCheek,
			})
			So(landmark.Names(), ShouldResemble, names)
		})

		Convey("Then the region rectangles match the policy with truncated half extents", func() {
			want := []image.Rectangle{
				image.Rect(50, 111, 100, 125),  // left eye: center (75,118), half 25x7
				image.Rect(145, 111, 195, 125), // right eye: center (170,118)
				image.Rect(65, 8, 185, 62),     // forehead: center (125,35), half 60x27
				image.Rect(48, 143, 82, 157),   // left cheek: center (65,150), half 17x7
				image.Rect(178, 143, 212, 157), // right cheek: center (195,150)
			}
			for i, r := range regions {
				So(r.Rect, ShouldResemble, want[i])
			}
		})

		Convey("Then all regions lie within [0,250)x[0,250)", func() {
			bounds := image.Rect(0, 0, 250, 250)
			for _, r := range regions {
				So(r.Rect.In(bounds), ShouldBeTrue)
			}
			So(landmark.Validate(regions, bounds), ShouldBeNil)
		})
	})
}

func TestCompute_Pure(t *testing.T) {
	Convey("Given repeated computations", t, func() {
		for _, sz := range []image.Point{{X: 250, Y: 250}, {X: 400, Y: 300}, {X: 251, Y: 249}} {
			a := landmark.Compute(sz.X, sz.Y)
			b := landmark.Compute(sz.X, sz.Y)
			So(cmp.Diff(a, b), ShouldBeEmpty)
		}
	})

	Convey("Given a caller that mutates the returned layout", t, func() {
		l := landmark.Layout()
		l[0].DX = 1000

		Convey("Then the policy should be unaffected", func() {
			So(landmark.Layout()[0].DX, ShouldEqual, -50)
			So(landmark.Compute(250, 250)[0].Rect.Min.X, ShouldEqual, 50)
		})
	})
}

func TestLandmark_HalfExtents(t *testing.T) {
	Convey("Given the policy landmarks", t, func() {
		halves := map[string][2]int{}
		for _, l := range landmark.Layout() {
			halves[l.Name] = [2]int{l.HalfWidth(), l.HalfHeight()}
		}
		So(halves[landmark.LeftEye], ShouldResemble, [2]int{25, 7})
		So(halves[landmark.RightEye], ShouldResemble, [2]int{25, 7})
		So(halves[landmark.Forehead], ShouldResemble, [2]int{60, 27})
		So(halves[landmark.LeftCheek], ShouldResemble, [2]int{17, 7})
		So(halves[landmark.RightCheek], ShouldResemble, [2]int{17, 7})
	})
}

func TestValidate_SmallFace(t *testing.T) {
	Convey("Given a canonical size too small for the forehead", t, func() {
		regions := landmark.Compute(120, 120)
		err := landmark.Validate(regions, image.Rect(0, 0, 120, 120))

		Convey("Then validation should report, not clamp", func() {
			So(errors.Is(err, model.ErrRegionOutOfBounds), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, landmark.Forehead)
			So(regions[2].Rect.Min.Y, ShouldBeLessThan, 0)
		})
	})
}
