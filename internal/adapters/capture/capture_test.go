package capture_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/okian/wrinkles/internal/adapters/capture"
	"github.com/okian/wrinkles/internal/domain/model"
	"github.com/okian/wrinkles/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func writePNG(path string, w, h int) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		panic(err)
	}
}

func TestImages(t *testing.T) {
	Convey("Given a directory with images and other files", t, func() {
		dir := t.TempDir()
		writePNG(filepath.Join(dir, "b.png"), 30, 20)
		writePNG(filepath.Join(dir, "a.png"), 40, 10)
		So(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o600), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("not a jpeg"), 0o600), ShouldBeNil)
		extra := filepath.Join(t.TempDir(), "extra.png")
		writePNG(extra, 8, 8)

		src, err := capture.NewImages([]string{dir, extra}, capture.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)
		defer src.Close()

		Convey("Then only image files are picked up, directory entries sorted", func() {
			So(src.Len(), ShouldEqual, 4)
		})

		Convey("When reading every frame", func() {
			frame := gocv.NewMat()
			defer frame.Close()
			ctx := context.Background()

			var sizes []image.Point
			var err error
			for {
				if err = src.Read(ctx, &frame); err != nil {
					break
				}
				So(frame.Channels(), ShouldEqual, 3)
				sizes = append(sizes, image.Pt(frame.Cols(), frame.Rows()))
			}

			Convey("Then readable images come in order and the source ends exhausted", func() {
				So(sizes, ShouldResemble, []image.Point{image.Pt(40, 10), image.Pt(30, 20), image.Pt(8, 8)})
				So(errors.Is(err, model.ErrSourceExhausted), ShouldBeTrue)
			})
		})

		Convey("When the context is cancelled", func() {
			frame := gocv.NewMat()
			defer frame.Close()
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := src.Read(ctx, &frame)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Given paths without images", t, func() {
		_, err := capture.NewImages([]string{t.TempDir()})
		So(errors.Is(err, capture.ErrNoImages), ShouldBeTrue)
	})

	Convey("Given a path that does not exist", t, func() {
		_, err := capture.NewImages([]string{"/nonexistent/face.png"})
		So(err, ShouldNotBeNil)
	})
}
