package mmm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/okian/mmx/internal/domain/series"
	"github.com/okian/mmx/internal/domain/transform"
)

// Condition number above which the normal equations are treated as
// singular rather than solved with garbage precision.
const maxConditionNumber = 1e12

// Linear is the ordinary least-squares variant. Fit is deterministic and
// fast; fitted parameters are a coefficient vector plus intercept.
type Linear struct {
	decay float64
}

// NewLinear creates the OLS variant with the shared adstock decay the
// caller will use for the feature transform.
func NewLinear(decay float64) *Linear {
	return &Linear{decay: decay}
}

// Kind returns KindLinear.
func (l *Linear) Kind() Kind { return KindLinear }

// Fit solves the least-squares system over the transformed features via
// QR decomposition. A rank-deficient matrix (for example two identical
// channels) fails with ErrSingularMatrix; no artifact is produced.
func (l *Linear) Fit(_ context.Context, fm series.FeatureMatrix, target []float64) (*ModelArtifact, error) {
	if err := transform.ValidateDecay(l.decay); err != nil {
		return nil, err
	}
	if err := checkFit(fm, target); err != nil {
		return nil, err
	}

	x := designMatrix(fm)
	y := mat.NewDense(fm.Rows(), 1, target)

	var qr mat.QR
	qr.Factorize(x)
	if cond := qr.Cond(); cond > maxConditionNumber {
		return nil, fmt.Errorf("%w: condition number %.3g", ErrSingularMatrix, cond)
	}

	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, y); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSingularMatrix, err)
	}

	coefs := make([]float64, len(fm.Names))
	for j := range coefs {
		coefs[j] = sol.At(j+1, 0)
	}
	start, end := fm.Dates[0], fm.Dates[len(fm.Dates)-1]

	return &ModelArtifact{
		ID:           uuid.NewString(),
		Kind:         KindLinear,
		AdstockDecay: l.decay,
		FeatureNames: append([]string(nil), fm.Names...),
		Fitted: FittedParameters{
			Intercept:    sol.At(0, 0),
			Coefficients: coefs,
		},
		TrainingRange: DateRange{Start: start, End: end},
		TrainedAt:     time.Now().UTC(),
	}, nil
}

// Predict applies the trained coefficients to new features.
func (l *Linear) Predict(_ context.Context, art *ModelArtifact, fm series.FeatureMatrix) (series.Forecast, error) {
	if art != nil && art.Kind != KindLinear {
		return nil, fmt.Errorf("%w: artifact is %q", ErrKindMismatch, art.Kind)
	}
	return predictWith(art, fm)
}
