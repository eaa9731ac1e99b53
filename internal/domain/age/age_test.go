package age_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/wrinkles/internal/domain/age"
	"github.com/okian/wrinkles/internal/domain/model"
	"github.com/okian/wrinkles/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func five(v float64) []float64 { return []float64{v, v, v, v, v} }

func TestAggregate_Boundaries(t *testing.T) {
	Convey("Given uniform region percentages", t, func() {
		Convey("When all are 0", func() {
			avg, c, err := age.Aggregate(five(0))
			So(err, ShouldBeNil)
			So(avg, ShouldEqual, 0.0)
			So(c, ShouldEqual, types.Young)
		})

		Convey("When all are just under 5", func() {
			_, c, err := age.Aggregate(five(4.999))
			So(err, ShouldBeNil)
			So(c, ShouldEqual, types.Young)
		})

		Convey("When all are exactly 5", func() {
			avg, c, err := age.Aggregate(five(5.0))

			Convey("Then the lower bound is closed: middle-aged, not young", func() {
				So(err, ShouldBeNil)
				So(avg, ShouldEqual, 5.0)
				So(c, ShouldEqual, types.MiddleAged)
			})
		})

		Convey("When all are 14.999", func() {
			_, c, err := age.Aggregate(five(14.999))
			So(err, ShouldBeNil)
			So(c, ShouldEqual, types.MiddleAged)
		})

		Convey("When all are exactly 15", func() {
			avg, c, err := age.Aggregate(five(15.0))
			So(err, ShouldBeNil)
			So(avg, ShouldEqual, 15.0)
			So(c, ShouldEqual, types.Old)
		})

		Convey("When all are 100", func() {
			_, c, err := age.Aggregate(five(100))
			So(err, ShouldBeNil)
			So(c, ShouldEqual, types.Old)
		})
	})
}

func TestAggregate_Mean(t *testing.T) {
	Convey("Given mixed region percentages", t, func() {
		in := []float64{1.25, 30.5, 7.75, 0.1, 12.3}

		Convey("Then the result is the arithmetic mean", func() {
			avg, c, err := age.Aggregate(in)
			So(err, ShouldBeNil)
			So(avg, ShouldAlmostEqual, (1.25+30.5+7.75+0.1+12.3)/5, 1e-12)
			So(c, ShouldEqual, types.MiddleAged)
		})

		Convey("Then every permutation yields the identical mean and category", func() {
			want, wantCat, err := age.Aggregate(in)
			So(err, ShouldBeNil)

			permute(in, func(p []float64) {
				got, cat, err := age.Aggregate(p)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
				So(cat, ShouldEqual, wantCat)
			})
		})

		Convey("Then the caller's slice is not reordered", func() {
			cp := append([]float64(nil), in...)
			_, _, _ = age.Aggregate(cp)
			So(cp, ShouldResemble, in)
		})
	})
}

func TestAggregate_InvalidInput(t *testing.T) {
	Convey("Given malformed inputs", t, func() {
		cases := [][]float64{
			nil,
			{1, 2, 3, 4},
			{1, 2, 3, 4, 5, 6},
			{1, 2, math.NaN(), 4, 5},
			{1, 2, -0.5, 4, 5},
			{1, 2, 3, math.Inf(1), 5},
			{1, 2, 3, 4, 100.5},
		}
		for _, in := range cases {
			_, _, err := age.Aggregate(in)
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		}
	})
}

func TestCategorize(t *testing.T) {
	Convey("Given the cutoff rule", t, func() {
		So(age.Categorize(0), ShouldEqual, types.Young)
		So(age.Categorize(math.Nextafter(5, 0)), ShouldEqual, types.Young)
		So(age.Categorize(5), ShouldEqual, types.MiddleAged)
		So(age.Categorize(math.Nextafter(15, 0)), ShouldEqual, types.MiddleAged)
		So(age.Categorize(15), ShouldEqual, types.Old)
		So(age.Categorize(99), ShouldEqual, types.Old)
	})
}

// permute calls fn with every permutation of xs (Heap's algorithm).
func permute(xs []float64, fn func([]float64)) {
	a := append([]float64(nil), xs...)
	var gen func(int)
	gen = func(k int) {
		if k == 1 {
			fn(append([]float64(nil), a...))
			return
		}
		gen(k - 1)
		for i := 0; i < k-1; i++ {
			if k%2 == 0 {
				a[i], a[k-1] = a[k-1], a[i]
			} else {
				a[0], a[k-1] = a[k-1], a[0]
			}
			gen(k - 1)
		}
	}
	gen(len(a))
}
