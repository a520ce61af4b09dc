package api

import (
	"net/http"
	"time"

	"github.com/okian/mmx/internal/domain/series"
)

// ModelsHandler exposes metadata about the active model artifact.
type ModelsHandler struct {
	deps Dependencies
}

// NewModelsHandler creates a models handler.
func NewModelsHandler(deps Dependencies) *ModelsHandler {
	return &ModelsHandler{deps: deps}
}

type samplerResponse struct {
	Draws          int     `json:"draws"`
	Warmup         int     `json:"warmup"`
	Chains         int     `json:"chains"`
	Seed           uint64  `json:"seed"`
	MaxRHat        float64 `json:"max_rhat"`
	AcceptanceRate float64 `json:"acceptance_rate"`
}

type intervalResponse struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// modelResponse deliberately omits raw point coefficients; the artifact
// file is the place to inspect fitted parameters. Posterior credible
// intervals are uncertainty provenance, so the bayesian kind surfaces
// them here keyed by feature name.
type modelResponse struct {
	ArtifactID           string                      `json:"artifact_id"`
	ModelType            string                      `json:"model_type"`
	AdstockDecay         float64                     `json:"adstock_decay"`
	FeatureNames         []string                    `json:"feature_names"`
	TrainingStart        string                      `json:"training_start"`
	TrainingEnd          string                      `json:"training_end"`
	TrainedAt            string                      `json:"trained_at"`
	Sampler              *samplerResponse            `json:"sampler,omitempty"`
	InterceptInterval    *intervalResponse           `json:"intercept_interval,omitempty"`
	CoefficientIntervals map[string]intervalResponse `json:"coefficient_intervals,omitempty"`
}

// HandleGetModel returns the active artifact's metadata, or 503 while no
// artifact is loaded.
func (h *ModelsHandler) HandleGetModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	info, err := h.deps.Info()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := modelResponse{
		ArtifactID:    info.ArtifactID,
		ModelType:     info.Kind,
		AdstockDecay:  info.AdstockDecay,
		FeatureNames:  info.FeatureNames,
		TrainingStart: info.TrainingStart.Format(series.DateLayout),
		TrainingEnd:   info.TrainingEnd.Format(series.DateLayout),
		TrainedAt:     info.TrainedAt.Format(time.RFC3339),
	}
	if info.Sampler != nil {
		resp.Sampler = &samplerResponse{
			Draws:          info.Sampler.Draws,
			Warmup:         info.Sampler.Warmup,
			Chains:         info.Sampler.Chains,
			Seed:           info.Sampler.Seed,
			MaxRHat:        info.Sampler.MaxRHat,
			AcceptanceRate: info.Sampler.AcceptanceRate,
		}
	}
	if info.InterceptInterval != nil {
		resp.InterceptInterval = &intervalResponse{
			Low:  info.InterceptInterval.Low,
			High: info.InterceptInterval.High,
		}
	}
	if len(info.CoefficientIntervals) > 0 {
		resp.CoefficientIntervals = make(map[string]intervalResponse, len(info.CoefficientIntervals))
		for name, iv := range info.CoefficientIntervals {
			resp.CoefficientIntervals[name] = intervalResponse{Low: iv.Low, High: iv.High}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
