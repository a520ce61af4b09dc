package repository

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/mmx/internal/domain/mmm"
	"github.com/okian/mmx/internal/domain/series"
)

func bayesianArtifact() *mmm.ModelArtifact {
	return &mmm.ModelArtifact{
		ID:           "11111111-2222-3333-4444-555555555555",
		Kind:         mmm.KindBayesian,
		AdstockDecay: 0.3,
		FeatureNames: []string{"radio_spend", "tv_spend"},
		Fitted: mmm.FittedParameters{
			Intercept:         4.2,
			Coefficients:      []float64{0.31, 0.52},
			InterceptInterval: &mmm.Interval{Low: 3.9, High: 4.5},
			CoefficientIntervals: []mmm.Interval{
				{Low: 0.2, High: 0.4},
				{Low: 0.4, High: 0.6},
			},
			NoiseSigma: 0.12,
			Diagnostics: &mmm.SamplerDiagnostics{
				Draws: 2000, Warmup: 1000, Chains: 2, Seed: 42,
				MaxRHat: 1.003, AcceptanceRate: 0.41,
			},
		},
		TrainingRange: mmm.DateRange{
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		TrainedAt: time.Date(2024, 4, 1, 12, 30, 0, 0, time.UTC),
	}
}

func TestFileArtifactStore(t *testing.T) {
	convey.Convey("Given a file artifact store", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		store := NewFileArtifactStore(dir)

		convey.Convey("When saving and loading a bayesian artifact", func() {
			art := bayesianArtifact()
			path, err := store.Save(ctx, art)
			convey.So(err, convey.ShouldBeNil)
			convey.So(path, convey.ShouldEqual, filepath.Join(dir, "trained_bayesian_model.json"))

			got, err := store.Load(ctx, path)

			convey.Convey("Then the round trip is field-for-field identical", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got, convey.ShouldResemble, art)
			})
		})

		convey.Convey("When saving a linear artifact", func() {
			art := bayesianArtifact()
			art.Kind = mmm.KindLinear
			art.Fitted = mmm.FittedParameters{Intercept: 4.2, Coefficients: []float64{0.31, 0.52}}
			path, err := store.Save(ctx, art)
			convey.So(err, convey.ShouldBeNil)

			got, err := store.Load(ctx, path)

			convey.Convey("Then the optional fields stay absent", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(path, convey.ShouldEqual, filepath.Join(dir, "trained_linear_model.json"))
				convey.So(got.Fitted.InterceptInterval, convey.ShouldBeNil)
				convey.So(got.Fitted.Diagnostics, convey.ShouldBeNil)
				convey.So(got, convey.ShouldResemble, art)
			})
		})

		convey.Convey("When loading a path that does not exist", func() {
			_, err := store.Load(ctx, filepath.Join(dir, "missing.json"))

			convey.Convey("Then the miss is reported as not found", func() {
				convey.So(err, convey.ShouldWrap, ErrArtifactNotFound)
			})
		})

		convey.Convey("When the file is not valid JSON", func() {
			path := filepath.Join(dir, "broken.json")
			convey.So(os.WriteFile(path, []byte("{nope"), 0o644), convey.ShouldBeNil)

			_, err := store.Load(ctx, path)

			convey.Convey("Then decoding fails", func() {
				convey.So(err, convey.ShouldWrap, ErrArtifactDecode)
			})
		})

		convey.Convey("When the file decodes but violates artifact invariants", func() {
			path := filepath.Join(dir, "invalid.json")
			convey.So(os.WriteFile(path, []byte(`{"model_kind":"linear","adstock_decay":2.0,"feature_names":["tv"],"fitted_parameters":{"intercept":1,"coefficients":[0.5]}}`), 0o644), convey.ShouldBeNil)

			_, err := store.Load(ctx, path)

			convey.Convey("Then validation fails as a decode error", func() {
				convey.So(err, convey.ShouldWrap, ErrArtifactDecode)
			})
		})

		convey.Convey("When saving a nil artifact", func() {
			_, err := store.Save(ctx, nil)
			convey.So(err, convey.ShouldWrap, mmm.ErrNilArtifact)
		})
	})
}

func TestParquetDatasetStore(t *testing.T) {
	convey.Convey("Given a parquet dataset store", t, func() {
		ctx := context.Background()
		store := NewParquetDatasetStore()

		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		ds := series.Dataset{
			Dates:    []time.Time{start, start.AddDate(0, 0, 1), start.AddDate(0, 0, 2)},
			Channels: []string{"radio_spend", "tv_spend"},
			Spend: map[string][]float64{
				"radio_spend": {10, 20, 30},
				"tv_spend":    {100, 110, 120},
			},
			Sales: []float64{1000, 1100, 1200},
		}

		convey.Convey("When saving and loading a dataset with sales", func() {
			dir := t.TempDir()
			path, err := store.Save(ctx, dir, ds)
			convey.So(err, convey.ShouldBeNil)
			convey.So(filepath.Base(path), convey.ShouldEqual, "cleaned_data.parquet")

			got, err := store.Load(ctx, dir)

			convey.Convey("Then the pivot restores the wide table", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.Dates, convey.ShouldResemble, ds.Dates)
				convey.So(got.Channels, convey.ShouldResemble, ds.Channels)
				convey.So(got.Spend, convey.ShouldResemble, ds.Spend)
				convey.So(got.Sales, convey.ShouldResemble, ds.Sales)
			})
		})

		convey.Convey("When the dataset has no sales column", func() {
			dir := t.TempDir()
			noSales := ds
			noSales.Sales = nil
			_, err := store.Save(ctx, dir, noSales)
			convey.So(err, convey.ShouldBeNil)

			got, err := store.Load(ctx, dir)

			convey.Convey("Then the loaded dataset has none either", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.HasSales(), convey.ShouldBeFalse)
				convey.So(got.Spend, convey.ShouldResemble, ds.Spend)
			})
		})

		convey.Convey("When loading from an empty directory", func() {
			_, err := store.Load(ctx, t.TempDir())

			convey.Convey("Then the miss is reported as not found", func() {
				convey.So(err, convey.ShouldWrap, ErrDatasetNotFound)
			})
		})

		convey.Convey("When a value survives a round trip", func() {
			dir := t.TempDir()
			precise := ds
			precise.Spend = map[string][]float64{
				"radio_spend": {math.Pi, math.E, math.Sqrt2},
				"tv_spend":    {1e-12, 0, 9.9e15},
			}
			_, err := store.Save(ctx, dir, precise)
			convey.So(err, convey.ShouldBeNil)

			got, err := store.Load(ctx, dir)

			convey.Convey("Then float64 precision is preserved", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.Spend["radio_spend"][0], convey.ShouldEqual, math.Pi)
				convey.So(got.Spend["tv_spend"][2], convey.ShouldEqual, 9.9e15)
			})
		})
	})
}
