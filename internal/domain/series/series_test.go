package series

import (
	"math"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

func TestDataset(t *testing.T) {
	convey.Convey("Given a dataset", t, func() {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		ds := Dataset{
			Dates:    []time.Time{start, start.AddDate(0, 0, 1)},
			Channels: []string{"tv", "radio"},
			Spend: map[string][]float64{
				"tv":    {100, 110},
				"radio": {50, 55},
			},
		}

		convey.Convey("When inspecting its shape", func() {
			convey.So(ds.Rows(), convey.ShouldEqual, 2)
			convey.So(ds.HasSales(), convey.ShouldBeFalse)
			s, e := ds.DateRange()
			convey.So(s, convey.ShouldEqual, ds.Dates[0])
			convey.So(e, convey.ShouldEqual, ds.Dates[1])
		})

		convey.Convey("When sorting channels", func() {
			ds.SortChannels()
			convey.So(ds.Channels, convey.ShouldResemble, []string{"radio", "tv"})
		})

		convey.Convey("When a cell is NaN", func() {
			ds.Spend["tv"][1] = math.NaN()
			convey.So(ds.Complete(), convey.ShouldBeFalse)
		})

		convey.Convey("When all cells are finite", func() {
			convey.So(ds.Complete(), convey.ShouldBeTrue)
		})
	})
}

func TestFeatureMatrixRowMajor(t *testing.T) {
	convey.Convey("Given a feature matrix", t, func() {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		fm := FeatureMatrix{
			Dates: []time.Time{start, start.AddDate(0, 0, 1)},
			Names: []string{"a", "b"},
			Cols:  [][]float64{{1, 2}, {3, 4}},
		}

		convey.Convey("When flattening to row-major order", func() {
			flat := fm.RowMajor()

			convey.Convey("Then rows interleave the columns", func() {
				convey.So(flat, convey.ShouldResemble, []float64{1, 3, 2, 4})
			})
		})
	})
}

func TestForecastValues(t *testing.T) {
	convey.Convey("Given a forecast", t, func() {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		f := Forecast{
			{Date: start, PredictedSales: 10},
			{Date: start.AddDate(0, 0, 1), PredictedSales: 20},
		}

		convey.Convey("When extracting values", func() {
			convey.So(f.Values(), convey.ShouldResemble, []float64{10, 20})
		})
	})
}
