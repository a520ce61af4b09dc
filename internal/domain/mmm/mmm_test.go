package mmm

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/mmx/internal/domain/series"
)

// syntheticMatrix builds n rows of two noise-free features and a target
// generated from known parameters, so the linear fit must recover them.
func syntheticMatrix(n int) (series.FeatureMatrix, []float64) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, n)
	x1 := make([]float64, n)
	x2 := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		dates[i] = start.AddDate(0, 0, i)
		x1[i] = 1 + 0.1*float64(i)
		x2[i] = 2 + 0.05*float64(i%7)
		y[i] = 2 + 0.5*x1[i] + 0.3*x2[i]
	}
	fm := series.FeatureMatrix{
		Dates: dates,
		Names: []string{"radio", "tv"},
		Cols:  [][]float64{x1, x2},
	}
	return fm, y
}

func TestParseKind(t *testing.T) {
	convey.Convey("Given kind strings", t, func() {
		convey.Convey("When parsing supported kinds", func() {
			for _, s := range []string{"linear", "bayesian"} {
				kind, err := ParseKind(s)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(kind), convey.ShouldEqual, s)
			}
		})

		convey.Convey("When parsing anything else", func() {
			_, err := ParseKind("quadratic")
			convey.So(err, convey.ShouldWrap, ErrUnknownKind)
		})
	})
}

func TestLinearFit(t *testing.T) {
	convey.Convey("Given a noise-free synthetic dataset", t, func() {
		ctx := context.Background()
		fm, y := syntheticMatrix(40)
		est := NewLinear(0.3)

		convey.Convey("When fitting the linear variant", func() {
			art, err := est.Fit(ctx, fm, y)

			convey.Convey("Then the known parameters are recovered", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(art.Kind, convey.ShouldEqual, KindLinear)
				convey.So(art.Fitted.Intercept, convey.ShouldAlmostEqual, 2.0, 1e-8)
				convey.So(art.Fitted.Coefficients[0], convey.ShouldAlmostEqual, 0.5, 1e-8)
				convey.So(art.Fitted.Coefficients[1], convey.ShouldAlmostEqual, 0.3, 1e-8)
			})

			convey.Convey("Then the artifact records its provenance", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(art.ID, convey.ShouldNotBeEmpty)
				convey.So(art.AdstockDecay, convey.ShouldEqual, 0.3)
				convey.So(art.FeatureNames, convey.ShouldResemble, []string{"radio", "tv"})
				convey.So(art.TrainingRange.Start, convey.ShouldEqual, fm.Dates[0])
				convey.So(art.TrainingRange.End, convey.ShouldEqual, fm.Dates[len(fm.Dates)-1])
				convey.So(art.Validate(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When two channels are identical", func() {
			dup := fm
			dup.Cols = [][]float64{fm.Cols[0], fm.Cols[0]}
			_, err := est.Fit(ctx, dup, y)

			convey.Convey("Then the fit fails instead of inventing a split", func() {
				convey.So(err, convey.ShouldWrap, ErrSingularMatrix)
			})
		})

		convey.Convey("When there are too few rows", func() {
			short, shortY := syntheticMatrix(3)
			_, err := est.Fit(ctx, short, shortY)

			convey.Convey("Then the fit is rejected", func() {
				convey.So(err, convey.ShouldWrap, ErrInsufficientRows)
			})
		})

		convey.Convey("When rows and targets disagree", func() {
			_, err := est.Fit(ctx, fm, y[:10])

			convey.Convey("Then the fit is rejected", func() {
				convey.So(err, convey.ShouldWrap, ErrDimensionMismatch)
			})
		})

		convey.Convey("When the matrix is empty", func() {
			_, err := est.Fit(ctx, series.FeatureMatrix{}, nil)

			convey.Convey("Then the fit is rejected", func() {
				convey.So(err, convey.ShouldWrap, ErrNoTrainingData)
			})
		})
	})
}

func TestPredict(t *testing.T) {
	convey.Convey("Given a trained linear artifact", t, func() {
		ctx := context.Background()
		fm, y := syntheticMatrix(40)
		est := NewLinear(0.3)
		art, err := est.Fit(ctx, fm, y)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When predicting over the training features", func() {
			fc, err := est.Predict(ctx, art, fm)

			convey.Convey("Then predictions invert the log transform of the target", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(fc), convey.ShouldEqual, fm.Rows())
				for i, p := range fc {
					convey.So(p.Date, convey.ShouldEqual, fm.Dates[i])
					// y is in log space; expm1 undoes it.
					convey.So(p.PredictedSales, convey.ShouldAlmostEqual, math.Expm1(y[i]), 1e-6)
				}
			})
		})

		convey.Convey("When the feature order differs from training", func() {
			swapped := fm
			swapped.Names = []string{"tv", "radio"}
			_, err := est.Predict(ctx, art, swapped)

			convey.Convey("Then the prediction fails loudly", func() {
				convey.So(err, convey.ShouldWrap, ErrFeatureMismatch)
			})
		})

		convey.Convey("When a feature is missing", func() {
			partial := fm
			partial.Names = []string{"radio"}
			partial.Cols = fm.Cols[:1]
			_, err := est.Predict(ctx, art, partial)

			convey.Convey("Then the prediction fails loudly", func() {
				convey.So(err, convey.ShouldWrap, ErrFeatureMismatch)
			})
		})

		convey.Convey("When no artifact is loaded", func() {
			_, err := est.Predict(ctx, nil, fm)

			convey.Convey("Then the prediction is rejected", func() {
				convey.So(err, convey.ShouldWrap, ErrNilArtifact)
			})
		})

		convey.Convey("When the artifact kind disagrees with the variant", func() {
			other := *art
			other.Kind = KindBayesian
			_, err := est.Predict(ctx, &other, fm)

			convey.Convey("Then the prediction is rejected", func() {
				convey.So(err, convey.ShouldWrap, ErrKindMismatch)
			})
		})

		convey.Convey("When the input has the right features but no rows", func() {
			empty := series.FeatureMatrix{Names: fm.Names, Cols: [][]float64{{}, {}}}
			_, err := est.Predict(ctx, art, empty)

			convey.Convey("Then the prediction names the empty input", func() {
				convey.So(err, convey.ShouldWrap, ErrEmptyInput)
			})
		})
	})
}

func TestArtifactValidate(t *testing.T) {
	convey.Convey("Given artifact validation", t, func() {
		good := ModelArtifact{
			ID:           "a",
			Kind:         KindLinear,
			AdstockDecay: 0.3,
			FeatureNames: []string{"tv"},
			Fitted:       FittedParameters{Intercept: 1, Coefficients: []float64{0.5}},
		}

		convey.Convey("When the artifact is well formed", func() {
			convey.So(good.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the kind is unknown", func() {
			bad := good
			bad.Kind = "cubic"
			convey.So(bad.Validate(), convey.ShouldWrap, ErrUnknownKind)
		})

		convey.Convey("When the decay is out of range", func() {
			bad := good
			bad.AdstockDecay = 1.5
			convey.So(bad.Validate(), convey.ShouldWrap, ErrCorruptArtifact)
		})

		convey.Convey("When coefficients and features disagree", func() {
			bad := good
			bad.Fitted.Coefficients = []float64{0.5, 0.2}
			convey.So(bad.Validate(), convey.ShouldWrap, ErrCorruptArtifact)
		})

		convey.Convey("When there are no features", func() {
			bad := good
			bad.FeatureNames = nil
			bad.Fitted.Coefficients = nil
			convey.So(bad.Validate(), convey.ShouldWrap, ErrCorruptArtifact)
		})
	})
}

func TestBayesianFit(t *testing.T) {
	convey.Convey("Given a synthetic dataset with a strong signal", t, func() {
		ctx := context.Background()
		fm, y := syntheticMatrix(60)
		opts := []BayesianOption{WithDraws(800), WithWarmup(800), WithChains(2), WithSeed(7)}

		convey.Convey("When fitting twice with the same seed", func() {
			first, err1 := NewBayesian(0.3, opts...).Fit(ctx, fm, y)
			second, err2 := NewBayesian(0.3, opts...).Fit(ctx, fm, y)

			convey.Convey("Then the runs are bit-for-bit reproducible", func() {
				convey.So(errors.Is(err1, ErrNotConverged), convey.ShouldEqual, errors.Is(err2, ErrNotConverged))
				if err1 == nil {
					convey.So(err2, convey.ShouldBeNil)
					convey.So(second.Fitted.Intercept, convey.ShouldEqual, first.Fitted.Intercept)
					convey.So(second.Fitted.Coefficients, convey.ShouldResemble, first.Fitted.Coefficients)
					convey.So(second.Fitted.NoiseSigma, convey.ShouldEqual, first.Fitted.NoiseSigma)
				}
			})

			convey.Convey("Then a converged artifact carries intervals and diagnostics", func() {
				if err1 != nil {
					convey.So(err1, convey.ShouldWrap, ErrNotConverged)
					return
				}
				convey.So(first.Kind, convey.ShouldEqual, KindBayesian)
				convey.So(first.Fitted.InterceptInterval, convey.ShouldNotBeNil)
				convey.So(len(first.Fitted.CoefficientIntervals), convey.ShouldEqual, len(fm.Names))
				for _, iv := range first.Fitted.CoefficientIntervals {
					convey.So(iv.Low, convey.ShouldBeLessThanOrEqualTo, iv.High)
				}
				convey.So(first.Fitted.NoiseSigma, convey.ShouldBeGreaterThan, 0)
				convey.So(first.Fitted.Diagnostics, convey.ShouldNotBeNil)
				convey.So(first.Fitted.Diagnostics.MaxRHat, convey.ShouldBeLessThanOrEqualTo, 1.1)
				convey.So(first.Fitted.Diagnostics.Chains, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When a different seed is used", func() {
			a, err1 := NewBayesian(0.3, WithDraws(400), WithWarmup(400), WithSeed(1)).Fit(ctx, fm, y)
			b, err2 := NewBayesian(0.3, WithDraws(400), WithWarmup(400), WithSeed(2)).Fit(ctx, fm, y)

			convey.Convey("Then the draws differ", func() {
				if err1 != nil || err2 != nil {
					return
				}
				convey.So(a.Fitted.Intercept, convey.ShouldNotEqual, b.Fitted.Intercept)
			})
		})

		convey.Convey("When the context is already cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := NewBayesian(0.3, opts...).Fit(cancelled, fm, y)

			convey.Convey("Then sampling stops", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When fewer than two chains are requested", func() {
			b := NewBayesian(0.3, WithChains(1))

			convey.Convey("Then the option is ignored", func() {
				convey.So(b.chains, convey.ShouldEqual, 2)
			})
		})
	})
}

func TestSplitRHat(t *testing.T) {
	convey.Convey("Given chains of draws", t, func() {
		convey.Convey("When chains explore the same region", func() {
			a := make([]float64, 200)
			b := make([]float64, 200)
			for i := range a {
				a[i] = float64(i%10) * 0.01
				b[i] = float64((i+3)%10) * 0.01
			}
			r := splitRHat([][]float64{a, b})

			convey.Convey("Then R-hat is close to one", func() {
				convey.So(r, convey.ShouldBeLessThan, 1.1)
			})
		})

		convey.Convey("When chains sit in different regions", func() {
			a := make([]float64, 200)
			b := make([]float64, 200)
			for i := range a {
				a[i] = 0 + float64(i%10)*0.001
				b[i] = 100 + float64(i%10)*0.001
			}
			r := splitRHat([][]float64{a, b})

			convey.Convey("Then R-hat is far above the gate", func() {
				convey.So(r, convey.ShouldBeGreaterThan, 1.1)
			})
		})
	})
}
