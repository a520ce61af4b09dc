// Package types contains common types passed between the service and the
// HTTP layer.
package types

import (
	"time"

	"github.com/okian/mmx/internal/domain/evaluation"
	"github.com/okian/mmx/internal/domain/series"
)

// PredictionResult is the assembled outcome of one prediction request:
// the dated forecast plus the provenance a caller needs to interpret it.
type PredictionResult struct {
	Forecast      series.Forecast
	ModelKind     string
	AdstockDecay  float64
	RowsProcessed int
	// Evaluation is present only when a sales series accompanied the upload.
	Evaluation *evaluation.Result
	// EvaluationError notes why evaluation was skipped even though a sales
	// series was uploaded. The forecast itself is still valid.
	EvaluationError string
}

// CredibleInterval is a central 95% posterior interval bound pair.
type CredibleInterval struct {
	Low  float64
	High float64
}

// SamplerInfo summarizes how a Bayesian artifact was produced.
type SamplerInfo struct {
	Draws          int
	Warmup         int
	Chains         int
	Seed           uint64
	MaxRHat        float64
	AcceptanceRate float64
}

// ModelInfo describes the active artifact without exposing raw fitted
// parameters.
type ModelInfo struct {
	ArtifactID    string
	Kind          string
	AdstockDecay  float64
	FeatureNames  []string
	TrainingStart time.Time
	TrainingEnd   time.Time
	TrainedAt     time.Time

	// Sampler, InterceptInterval and CoefficientIntervals are nil for the
	// linear kind. Intervals are keyed by feature name.
	Sampler              *SamplerInfo
	InterceptInterval    *CredibleInterval
	CoefficientIntervals map[string]CredibleInterval
}
