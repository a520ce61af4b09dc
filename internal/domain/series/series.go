// Package series contains the time-series value types passed between layers.
package series

import (
	"math"
	"sort"
	"time"
)

// DateLayout is the canonical on-the-wire date format for all series.
const DateLayout = "2006-01-02"

// Point is a single dated observation.
type Point struct {
	Date  time.Time
	Value float64
}

// ChannelSeries is an ordered sequence of observations for one channel.
// Dates are unique and ascending once ingestion has joined the inputs.
type ChannelSeries struct {
	Name   string
	Points []Point
}

// Dataset is a date-aligned table: one spend column per channel plus an
// optional sales column. Cells may hold NaN between joining and cleaning;
// a cleaned dataset contains no NaN and no negative values.
type Dataset struct {
	Dates    []time.Time
	Channels []string // column order, fixed after join
	Spend    map[string][]float64
	Sales    []float64 // nil when no sales series accompanied the input
}

// Rows returns the number of dates on the axis.
func (d Dataset) Rows() int { return len(d.Dates) }

// HasSales reports whether a sales column is present.
func (d Dataset) HasSales() bool { return d.Sales != nil }

// DateRange returns the first and last date of the axis.
func (d Dataset) DateRange() (start, end time.Time) {
	if len(d.Dates) == 0 {
		return time.Time{}, time.Time{}
	}
	return d.Dates[0], d.Dates[len(d.Dates)-1]
}

// Complete reports whether every cell holds a finite value.
func (d Dataset) Complete() bool {
	for _, name := range d.Channels {
		for _, v := range d.Spend[name] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	for _, v := range d.Sales {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// SortChannels fixes the column order by sorting channel names. Join order
// depends on filesystem enumeration, so the order is normalized once here
// and stays fixed for the lifetime of the dataset.
func (d *Dataset) SortChannels() {
	sort.Strings(d.Channels)
}

// FeatureMatrix is the date-indexed table of transformed channel values
// used as model input. Column order is fixed and must match the trained
// artifact's feature names exactly at prediction time.
type FeatureMatrix struct {
	Dates []time.Time
	Names []string
	Cols  [][]float64 // Cols[i] belongs to Names[i], len(Cols[i]) == len(Dates)
}

// Rows returns the number of observations.
func (m FeatureMatrix) Rows() int { return len(m.Dates) }

// RowMajor flattens the matrix into row-major order for linear algebra.
func (m FeatureMatrix) RowMajor() []float64 {
	rows, cols := len(m.Dates), len(m.Names)
	out := make([]float64, rows*cols)
	for j, col := range m.Cols {
		for i, v := range col {
			out[i*cols+j] = v
		}
	}
	return out
}

// ForecastPoint is one dated prediction.
type ForecastPoint struct {
	Date           time.Time
	PredictedSales float64
}

// Forecast is an ordered sequence of predictions, one per input row,
// in the same date order as the input.
type Forecast []ForecastPoint

// Values extracts the predicted values in order.
func (f Forecast) Values() []float64 {
	out := make([]float64, len(f))
	for i, p := range f {
		out[i] = p.PredictedSales
	}
	return out
}
