// Package mmm holds the marketing mix model variants and the trained
// artifact they produce. Both variants share the transform package and
// differ only in how coefficients are estimated.
package mmm

import (
	"fmt"
	"time"
)

// Kind identifies a model variant.
type Kind string

// Supported model kinds.
const (
	KindLinear   Kind = "linear"
	KindBayesian Kind = "bayesian"
)

// ParseKind validates a model kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindLinear, KindBayesian:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Interval is a central credible interval bound pair.
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// SamplerDiagnostics records how the posterior sample was produced and
// whether it converged. Stored for provenance; raw draws never leave Fit.
type SamplerDiagnostics struct {
	Draws          int     `json:"draws"`
	Warmup         int     `json:"warmup"`
	Chains         int     `json:"chains"`
	Seed           uint64  `json:"seed"`
	MaxRHat        float64 `json:"max_rhat"`
	AcceptanceRate float64 `json:"acceptance_rate"`
}

// FittedParameters is the fixed-shape parameter summary shared by both
// variants: a point estimate always, interval bounds and diagnostics only
// for the Bayesian kind.
type FittedParameters struct {
	Intercept            float64             `json:"intercept"`
	Coefficients         []float64           `json:"coefficients"`
	InterceptInterval    *Interval           `json:"intercept_interval,omitempty"`
	CoefficientIntervals []Interval          `json:"coefficient_intervals,omitempty"`
	NoiseSigma           float64             `json:"noise_sigma,omitempty"`
	Diagnostics          *SamplerDiagnostics `json:"diagnostics,omitempty"`
}

// DateRange bounds the training window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ModelArtifact is the persisted, immutable output of a training run:
// everything needed to reproduce predictions. Created once by Fit, written
// once by the artifact store, read once at service startup, and never
// mutated in place; retraining produces a new artifact.
type ModelArtifact struct {
	ID            string           `json:"artifact_id"`
	Kind          Kind             `json:"model_kind"`
	AdstockDecay  float64          `json:"adstock_decay"`
	FeatureNames  []string         `json:"feature_names"`
	Fitted        FittedParameters `json:"fitted_parameters"`
	TrainingRange DateRange        `json:"training_date_range"`
	TrainedAt     time.Time        `json:"trained_at"`
}

// Validate checks structural invariants after deserialization.
func (a *ModelArtifact) Validate() error {
	if _, err := ParseKind(string(a.Kind)); err != nil {
		return err
	}
	if a.AdstockDecay < 0 || a.AdstockDecay >= 1 {
		return fmt.Errorf("%w: adstock_decay %v outside [0,1)", ErrCorruptArtifact, a.AdstockDecay)
	}
	if len(a.FeatureNames) == 0 {
		return fmt.Errorf("%w: no feature names", ErrCorruptArtifact)
	}
	if len(a.Fitted.Coefficients) != len(a.FeatureNames) {
		return fmt.Errorf("%w: %d coefficients for %d features",
			ErrCorruptArtifact, len(a.Fitted.Coefficients), len(a.FeatureNames))
	}
	return nil
}

// CheckFeatures rejects a feature set that differs from the recorded
// names in membership or order. Silent reindexing is the classic silent
// correctness bug in this family of models, so a mismatch fails loudly.
func (a *ModelArtifact) CheckFeatures(names []string) error {
	if len(names) != len(a.FeatureNames) {
		return fmt.Errorf("%w: got %d features %v, artifact trained on %d %v",
			ErrFeatureMismatch, len(names), names, len(a.FeatureNames), a.FeatureNames)
	}
	for i, want := range a.FeatureNames {
		if names[i] != want {
			return fmt.Errorf("%w: position %d is %q, artifact trained on %q",
				ErrFeatureMismatch, i, names[i], want)
		}
	}
	return nil
}
