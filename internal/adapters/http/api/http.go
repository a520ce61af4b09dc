// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/mmx/internal/adapters/ingest"
	"github.com/okian/mmx/internal/domain/evaluation"
	"github.com/okian/mmx/internal/domain/mmm"
	"github.com/okian/mmx/internal/domain/transform"
	"github.com/okian/mmx/internal/domain/types"
	"github.com/okian/mmx/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Ready reports whether a model artifact is loaded and serving.
	Ready() bool
	// State names the service lifecycle state for health reporting.
	State() string
	// Predict runs the prediction pipeline over a directory of uploaded CSVs.
	Predict(ctx context.Context, dir string) (*types.PredictionResult, error)
	// Info describes the active artifact without raw fitted parameters.
	Info() (types.ModelInfo, error)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	modelsHandler      *ModelsHandler
	statsHandler       *StatsHandler
	predictionsHandler *PredictionsHandler
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithMaxUploadBytes caps the multipart body of POST /predictions.
func WithMaxUploadBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.predictionsHandler.maxUploadBytes = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(deps),
		modelsHandler:      NewModelsHandler(deps),
		statsHandler:       NewStatsHandler(statsProvider),
		predictionsHandler: NewPredictionsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/models", MetricsMiddleware(s.modelsHandler.HandleGetModel, "models"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/predictions", MetricsMiddleware(s.predictionsHandler.HandleCreatePrediction, "predictions"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

// forecastPoint mirrors the response schema of POST /predictions.
type forecastPoint struct {
	Date           string  `json:"date"`
	PredictedSales float64 `json:"predicted_sales"`
}

type evaluationResponse struct {
	MAPE                float64 `json:"mape"`
	R2                  float64 `json:"r2"`
	ExcludedZeroActuals int     `json:"excluded_zero_actuals"`
}

type predictionResponse struct {
	Forecast      []forecastPoint     `json:"forecast"`
	ModelType     string              `json:"model_type"`
	AdstockDecay  float64             `json:"adstock_decay"`
	RowsProcessed int                 `json:"rows_processed"`
	Evaluation    *evaluationResponse `json:"evaluation,omitempty"`

	// EvaluationError is set when sales were uploaded but could not be
	// evaluated; the forecast is still returned.
	EvaluationError string `json:"evaluation_error,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps a pipeline error to the taxonomy the API exposes:
// bad input is the caller's to fix, an unready model is temporary, and
// everything else is a server fault.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mmm.ErrNilArtifact):
		writeError(w, http.StatusServiceUnavailable, "model_not_ready", err)
	case errors.Is(err, mmm.ErrFeatureMismatch):
		writeError(w, http.StatusBadRequest, "feature_mismatch", err)
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, "validation_error", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// isValidationError covers every rejected-input kind from the ingestion
// and evaluation stages.
func isValidationError(err error) bool {
	for _, kind := range []error{
		ingest.ErrNoSpendFiles,
		ingest.ErrMissingSales,
		ingest.ErrEmptyFile,
		ingest.ErrBadFileShape,
		ingest.ErrUnparsableDate,
		ingest.ErrNonNumericValue,
		ingest.ErrDuplicateDate,
		ingest.ErrNotEnoughRows,
		ingest.ErrNotEnoughChannels,
		ingest.ErrAllMissing,
		ingest.ErrCleaningFailed,
		mmm.ErrEmptyInput,
		transform.ErrEmptyDataset,
		transform.ErrIncompleteData,
		evaluation.ErrLengthMismatch,
		evaluation.ErrNoEvaluableRows,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
