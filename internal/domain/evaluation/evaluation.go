// Package evaluation computes point-forecast accuracy metrics over a
// validation window.
package evaluation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Result carries the metrics of one evaluation run.
//
// Zero-actual policy: rows where the actual value is exactly 0 are
// excluded from the MAPE mean and counted in ExcludedZeroActuals. The
// policy is fixed here; callers must not vary it per request. Imputing a
// substitute denominator was rejected because it manufactures an error
// magnitude that was never observed.
type Result struct {
	MAPE                float64 `json:"mape"`
	R2                  float64 `json:"r2"`
	Rows                int     `json:"rows"`
	ExcludedZeroActuals int     `json:"excluded_zero_actuals"`
}

// Evaluate computes MAPE and R-squared between predictions and actuals.
// Inputs must be equal length and share the forecast's date alignment;
// a mismatch is a caller error.
func Evaluate(predicted, actual []float64) (Result, error) {
	if len(predicted) != len(actual) {
		return Result{}, fmt.Errorf("%w: %d predicted vs %d actual",
			ErrLengthMismatch, len(predicted), len(actual))
	}
	if len(actual) == 0 {
		return Result{}, ErrNoEvaluableRows
	}

	var sum float64
	var used, excluded int
	for i, a := range actual {
		if a == 0 {
			excluded++
			continue
		}
		sum += math.Abs(a-predicted[i]) / math.Abs(a)
		used++
	}
	if used == 0 {
		return Result{}, fmt.Errorf("%w: every actual is zero", ErrNoEvaluableRows)
	}

	return Result{
		MAPE:                sum / float64(used) * 100,
		R2:                  rSquared(predicted, actual),
		Rows:                len(actual),
		ExcludedZeroActuals: excluded,
	}, nil
}

// rSquared computes the coefficient of determination over all rows.
func rSquared(predicted, actual []float64) float64 {
	mean := stat.Mean(actual, nil)
	var ssRes, ssTot float64
	for i, a := range actual {
		ssRes += (a - predicted[i]) * (a - predicted[i])
		ssTot += (a - mean) * (a - mean)
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}
