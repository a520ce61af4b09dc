package mmm

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/okian/mmx/internal/domain/series"
	"github.com/okian/mmx/internal/domain/transform"
)

// Estimator is the capability shared by all model variants. Fit consumes
// a transformed feature matrix and a log-space target; Predict applies a
// trained artifact to new features. Implementations keep no mutable state
// between calls, so a loaded artifact can serve concurrent predictions
// without coordination.
type Estimator interface {
	Kind() Kind
	Fit(ctx context.Context, fm series.FeatureMatrix, target []float64) (*ModelArtifact, error)
	Predict(ctx context.Context, art *ModelArtifact, fm series.FeatureMatrix) (series.Forecast, error)
}

// checkFit validates the shared Fit preconditions.
func checkFit(fm series.FeatureMatrix, target []float64) error {
	if fm.Rows() == 0 || len(fm.Names) == 0 {
		return ErrNoTrainingData
	}
	if fm.Rows() != len(target) {
		return fmt.Errorf("%w: %d rows vs %d targets", ErrDimensionMismatch, fm.Rows(), len(target))
	}
	// One observation per estimated parameter (p coefficients + intercept)
	// is the hard floor for a solvable system.
	if fm.Rows() <= len(fm.Names)+1 {
		return fmt.Errorf("%w: %d rows for %d features", ErrInsufficientRows, fm.Rows(), len(fm.Names))
	}
	return nil
}

// designMatrix builds the n x (p+1) matrix with a leading intercept column.
func designMatrix(fm series.FeatureMatrix) *mat.Dense {
	n, p := fm.Rows(), len(fm.Names)
	x := mat.NewDense(n, p+1, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
	}
	for j, col := range fm.Cols {
		for i, v := range col {
			x.Set(i, j+1, v)
		}
	}
	return x
}

// predictWith evaluates the linear predictor in log space and inverts the
// target transform. Shared by both variants: once fitted, prediction is a
// pure, allocation-light linear combination regardless of how the
// coefficients were estimated.
func predictWith(art *ModelArtifact, fm series.FeatureMatrix) (series.Forecast, error) {
	if art == nil {
		return nil, ErrNilArtifact
	}
	if err := art.CheckFeatures(fm.Names); err != nil {
		return nil, err
	}
	if fm.Rows() == 0 {
		return nil, ErrEmptyInput
	}

	n, p := fm.Rows(), len(fm.Names)
	x := mat.NewDense(n, p, fm.RowMajor())
	beta := mat.NewVecDense(p, art.Fitted.Coefficients)

	var mu mat.VecDense
	mu.MulVec(x, beta)

	logPreds := make([]float64, n)
	for i := range logPreds {
		logPreds[i] = art.Fitted.Intercept + mu.AtVec(i)
	}
	preds := transform.Expm1(logPreds)

	forecast := make(series.Forecast, n)
	for i := range preds {
		forecast[i] = series.ForecastPoint{Date: fm.Dates[i], PredictedSales: preds[i]}
	}
	return forecast, nil
}
