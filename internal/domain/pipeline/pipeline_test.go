package pipeline_test

import (
	"context"
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"

	"github.com/okian/wrinkles/internal/domain/edge"
	"github.com/okian/wrinkles/internal/domain/landmark"
	"github.com/okian/wrinkles/internal/domain/model"
	"github.com/okian/wrinkles/internal/domain/pipeline"
	"github.com/okian/wrinkles/internal/domain/types"
	"github.com/okian/wrinkles/internal/testutil"
	"github.com/okian/wrinkles/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPipeline_Analyze(t *testing.T) {
	Convey("Given a pipeline with reference settings", t, func() {
		p := pipeline.New(pipeline.WithLogger(logger.Nop()))
		ctx := context.Background()

		So(p.CanonicalSize(), ShouldResemble, image.Pt(250, 250))

		Convey("When analyzing a flat face", func() {
			crop := testutil.Flat(120, 140, 90)
			defer crop.Close()

			report, err := p.Analyze(ctx, crop)

			Convey("Then the face is young with no edges", func() {
				So(err, ShouldBeNil)
				So(report.FaceSize, ShouldResemble, image.Pt(250, 250))
				So(report.Average, ShouldAlmostEqual, 0, 1e-9)
				So(report.Category, ShouldEqual, types.Young)
				So(report.Warnings, ShouldBeEmpty)
				So(report.Regions, ShouldHaveLength, landmark.Count)
				for i, name := range landmark.Names() {
					So(report.Regions[i].Landmark, ShouldEqual, name)
				}
			})
		})

		Convey("When analyzing a dense checkerboard face", func() {
			crop := testutil.Checkerboard(250, 250, 4)
			defer crop.Close()

			report, err := p.Analyze(ctx, crop)

			Convey("Then the face is old", func() {
				So(err, ShouldBeNil)
				So(report.Average, ShouldBeGreaterThan, 15)
				So(report.Category, ShouldEqual, types.Old)
				for _, r := range report.Regions {
					So(r.Percentage, ShouldBeGreaterThan, 0)
					So(r.Clipped, ShouldBeFalse)
				}
			})
		})

		Convey("When the crop is empty", func() {
			crop := gocv.NewMat()
			defer crop.Close()

			_, err := p.Analyze(ctx, crop)

			Convey("Then it fails with invalid input", func() {
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			crop := testutil.Flat(100, 100, 90)
			defer crop.Close()
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			_, err := p.Analyze(cctx, crop)

			Convey("Then it returns the context error", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When analyzing a nil normalized face", func() {
			_, err := p.AnalyzeFace(ctx, nil)
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestPipeline_SmallCanonicalSize(t *testing.T) {
	Convey("Given a pipeline normalizing to 200x200", t, func() {
		p := pipeline.New(pipeline.WithCanonicalSize(200, 200), pipeline.WithLogger(logger.Nop()))
		crop := testutil.Flat(200, 200, 90)
		defer crop.Close()

		report, err := p.Analyze(context.Background(), crop)

		Convey("Then the forehead is clipped and reported as a warning", func() {
			So(err, ShouldBeNil)
			So(report.Warnings, ShouldHaveLength, 1)
			So(report.Warnings[0], ShouldContainSubstring, landmark.Forehead)
			forehead := report.Regions[2]
			So(forehead.Landmark, ShouldEqual, landmark.Forehead)
			So(forehead.Clipped, ShouldBeTrue)
			So(errors.Is(forehead.Warning, model.ErrRegionOutOfBounds), ShouldBeTrue)
			So(forehead.Bounds, ShouldResemble, image.Rect(40, 0, 160, 37))
			So(report.Category, ShouldEqual, types.Young)
		})
	})

	Convey("Given a pipeline normalizing to 120x120", t, func() {
		p := pipeline.New(pipeline.WithCanonicalSize(120, 120), pipeline.WithLogger(logger.Nop()))
		crop := testutil.Flat(120, 120, 90)
		defer crop.Close()

		_, err := p.Analyze(context.Background(), crop)

		Convey("Then a region with no pixels left fails the face", func() {
			So(errors.Is(err, model.ErrEmptyRegion), ShouldBeTrue)
			So(errors.Is(err, model.ErrRegionOutOfBounds), ShouldBeTrue)
		})
	})
}

func TestPipeline_Options(t *testing.T) {
	Convey("Given pipeline options", t, func() {
		Convey("When the canonical size is not positive", func() {
			p := pipeline.New(pipeline.WithCanonicalSize(0, -1))
			So(p.CanonicalSize(), ShouldResemble, image.Pt(250, 250))
		})

		Convey("When thresholds have the wrong length they are ignored", func() {
			p := pipeline.New(pipeline.WithThresholds([]model.ThresholdPair{{Low: 1, High: 2}}), pipeline.WithLogger(logger.Nop()))
			crop := testutil.Flat(100, 100, 90)
			defer crop.Close()

			_, err := p.Analyze(context.Background(), crop)
			So(err, ShouldBeNil)
		})

		Convey("When a threshold pair is invalid the face fails", func() {
			th := edge.DefaultThresholds()
			th[1] = model.ThresholdPair{Low: 10, High: 5}
			p := pipeline.New(pipeline.WithThresholds(th), pipeline.WithLogger(logger.Nop()))
			crop := testutil.Flat(100, 100, 90)
			defer crop.Close()

			_, err := p.Analyze(context.Background(), crop)
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, landmark.RightEye)
		})

		Convey("When thresholds are raised above any gradient", func() {
			th := make([]model.ThresholdPair, landmark.Count)
			for i := range th {
				th[i] = model.ThresholdPair{Low: 5000, High: 6000}
			}
			p := pipeline.New(pipeline.WithThresholds(th), pipeline.WithLogger(logger.Nop()))
			crop := testutil.Checkerboard(250, 250, 4)
			defer crop.Close()

			report, err := p.Analyze(context.Background(), crop)
			So(err, ShouldBeNil)
			So(report.Average, ShouldAlmostEqual, 0, 1e-9)
		})
	})
}
