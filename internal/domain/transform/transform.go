// Package transform implements the shared adstock and log feature
// transform applied ahead of every model variant.
package transform

import (
	"fmt"
	"math"

	"github.com/okian/mmx/internal/domain/series"
)

// ValidateDecay rejects decay values outside [0, 1). Decay >= 1 makes the
// adstock recursion grow without bound and is a configuration error.
func ValidateDecay(decay float64) error {
	if math.IsNaN(decay) || decay < 0 || decay >= 1 {
		return fmt.Errorf("%w: %v outside [0,1)", ErrInvalidDecay, decay)
	}
	return nil
}

// Adstock applies geometric carryover to a chronologically ordered spend
// series: out[0] = in[0]; out[t] = in[t] + decay*out[t-1]. Decay 0 is the
// identity. The input must sit on a complete, gap-free date axis; missing
// dates are resolved upstream, never interpolated here.
func Adstock(values []float64, decay float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	out[0] = values[0]
	for t := 1; t < len(values); t++ {
		out[t] = values[t] + decay*out[t-1]
	}
	return out
}

// Log1p applies log(1+x) elementwise, compressing scale differences across
// channels and encoding diminishing returns.
func Log1p(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Log1p(v)
	}
	return out
}

// Expm1 inverts Log1p elementwise.
func Expm1(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Expm1(v)
	}
	return out
}

// Features builds the model input matrix from a cleaned dataset: one
// column per channel, adstocked with the given decay and then
// log1p-scaled. Column order follows ds.Channels and stays fixed between
// training and prediction for a given model.
func Features(ds series.Dataset, decay float64) (series.FeatureMatrix, error) {
	if err := ValidateDecay(decay); err != nil {
		return series.FeatureMatrix{}, err
	}
	if ds.Rows() == 0 {
		return series.FeatureMatrix{}, ErrEmptyDataset
	}
	if !ds.Complete() {
		return series.FeatureMatrix{}, ErrIncompleteData
	}

	fm := series.FeatureMatrix{
		Dates: ds.Dates,
		Names: make([]string, 0, len(ds.Channels)),
		Cols:  make([][]float64, 0, len(ds.Channels)),
	}
	for _, name := range ds.Channels {
		fm.Names = append(fm.Names, name)
		fm.Cols = append(fm.Cols, Log1p(Adstock(ds.Spend[name], decay)))
	}
	return fm, nil
}

// Target log-transforms the sales series for model stability. Sales get no
// adstock: carryover is a property of spend, not of the outcome being
// explained. Predictions made in log space are inverted with Expm1 before
// being reported.
func Target(sales []float64) []float64 {
	return Log1p(sales)
}
