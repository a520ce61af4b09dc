// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/mmx/internal/adapters/ingest"
	repository "github.com/okian/mmx/internal/adapters/repository"
	"github.com/okian/mmx/internal/domain/evaluation"
	"github.com/okian/mmx/internal/domain/mmm"
	"github.com/okian/mmx/internal/domain/transform"
	"github.com/okian/mmx/internal/domain/types"
	"github.com/okian/mmx/pkg/logger"
	"github.com/okian/mmx/pkg/metrics"
)

// State names for the service lifecycle. The normal path is
// Uninitialized -> Loaded -> Serving; a failed artifact load keeps the
// service unready and the process exits rather than serving a
// partially-initialized model.
const (
	StateUninitialized = "uninitialized"
	StateLoaded        = "loaded"
	StateServing       = "serving"
)

// Default service configuration constants.
const (
	defaultModelKind    = mmm.KindBayesian
	defaultAdstockDecay = 0.3
	defaultBayesDraws   = 2000
	defaultBayesWarmup  = 1000
	defaultBayesChains  = 2
	defaultBayesSeed    = 42
)

// Service owns the single active model artifact for this process and
// exposes train/load/predict operations. The artifact is immutable after
// LoadArtifact, so concurrent predictions proceed without coordination.
type Service struct {
	mu sync.RWMutex

	// Core components
	estimator mmm.Estimator
	artifact  *mmm.ModelArtifact
	artifacts repository.ArtifactStore
	datasets  repository.DatasetStore

	// Configuration
	modelKind    mmm.Kind
	decay        float64
	artifactPath string
	processedDir string
	ingestOpts   []ingest.Option
	bayesDraws   int
	bayesWarmup  int
	bayesChains  int
	bayesSeed    uint64

	// State
	state string

	// Counters
	predictions   atomic.Int64
	rowsProcessed atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithModelKind selects the served model variant.
func WithModelKind(kind mmm.Kind) Option {
	return func(s *Service) {
		if kind != "" {
			s.modelKind = kind
		}
	}
}

// WithAdstockDecay sets the decay used for training runs. The serving
// path always uses the decay recorded in the loaded artifact.
func WithAdstockDecay(decay float64) Option {
	return func(s *Service) {
		s.decay = decay
	}
}

// WithArtifactPath sets the artifact loaded at startup.
func WithArtifactPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.artifactPath = path
		}
	}
}

// WithProcessedDataDir sets where training persists the cleaned dataset.
func WithProcessedDataDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.processedDir = dir
		}
	}
}

// WithArtifactStore sets a custom artifact store.
func WithArtifactStore(store repository.ArtifactStore) Option {
	return func(s *Service) {
		if store != nil {
			s.artifacts = store
		}
	}
}

// WithDatasetStore sets a custom dataset store.
func WithDatasetStore(store repository.DatasetStore) Option {
	return func(s *Service) {
		if store != nil {
			s.datasets = store
		}
	}
}

// WithIngestOptions forwards options to the ingestors built per call
// (spend pattern, sales file name, training thresholds).
func WithIngestOptions(opts ...ingest.Option) Option {
	return func(s *Service) {
		s.ingestOpts = append(s.ingestOpts, opts...)
	}
}

// WithSampler configures the Bayesian training sampler.
func WithSampler(draws, warmup, chains int, seed uint64) Option {
	return func(s *Service) {
		if draws > 0 {
			s.bayesDraws = draws
		}
		if warmup >= 0 {
			s.bayesWarmup = warmup
		}
		if chains >= 2 {
			s.bayesChains = chains
		}
		s.bayesSeed = seed
	}
}

// New creates a Service with configuration options. The service starts
// Uninitialized; LoadArtifact must succeed before it serves predictions.
func New(opts ...Option) *Service {
	s := &Service{
		modelKind:   defaultModelKind,
		decay:       defaultAdstockDecay,
		bayesDraws:  defaultBayesDraws,
		bayesWarmup: defaultBayesWarmup,
		bayesChains: defaultBayesChains,
		bayesSeed:   defaultBayesSeed,
		state:       StateUninitialized,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.artifacts == nil {
		s.artifacts = repository.NewFileArtifactStore(filepath.Dir(s.artifactPath))
	}
	if s.datasets == nil {
		s.datasets = repository.NewParquetDatasetStore()
	}
	return s
}

// newEstimator builds the estimator for a model kind and decay.
func (s *Service) newEstimator(kind mmm.Kind, decay float64) (mmm.Estimator, error) {
	switch kind {
	case mmm.KindLinear:
		return mmm.NewLinear(decay), nil
	case mmm.KindBayesian:
		return mmm.NewBayesian(decay,
			mmm.WithDraws(s.bayesDraws),
			mmm.WithWarmup(s.bayesWarmup),
			mmm.WithChains(s.bayesChains),
			mmm.WithSeed(s.bayesSeed),
		), nil
	default:
		return nil, fmt.Errorf("%w: %q", mmm.ErrUnknownKind, kind)
	}
}

// LoadArtifact reads the configured artifact and transitions the service
// to Loaded. The artifact's own decay and kind are authoritative from
// here on; they were fixed at training time and are never recomputed.
func (s *Service) LoadArtifact(ctx context.Context) error {
	art, err := s.artifacts.Load(ctx, s.artifactPath)
	if err != nil {
		metrics.UpdateModelReady(false)
		return err
	}
	if art.Kind != s.modelKind {
		metrics.UpdateModelReady(false)
		return fmt.Errorf("%w: configured %q, artifact at %s is %q",
			mmm.ErrKindMismatch, s.modelKind, s.artifactPath, art.Kind)
	}
	if art.AdstockDecay != s.decay {
		s.logger.Warn(ctx, "configured adstock_decay differs from artifact; artifact wins",
			logger.Float64("configured", s.decay),
			logger.Float64("artifact", art.AdstockDecay))
	}

	est, err := s.newEstimator(art.Kind, art.AdstockDecay)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.artifact = art
	s.estimator = est
	s.state = StateLoaded
	s.mu.Unlock()

	metrics.UpdateModelReady(true)
	metrics.UpdateModelInfo(art.AdstockDecay, len(art.FeatureNames))
	s.logger.Info(ctx, "model artifact loaded",
		logger.String("model_kind", string(art.Kind)),
		logger.Float64("adstock_decay", art.AdstockDecay),
		logger.Strings("feature_names", art.FeatureNames),
		logger.String("artifact_id", art.ID))
	return nil
}

// StartServing transitions Loaded -> Serving once the HTTP layer is up.
func (s *Service) StartServing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoaded {
		return fmt.Errorf("%w: cannot serve from state %q", mmm.ErrNilArtifact, s.state)
	}
	s.state = StateServing
	return nil
}

// Ready reports whether an artifact is loaded.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifact != nil
}

// State returns the lifecycle state name.
func (s *Service) State() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Train runs the full offline pipeline over a raw data directory:
// ingestion and cleaning, persistence of the cleaned dataset, feature
// transform, and the configured variant's fit. It returns the new
// artifact for the caller to persist and never touches the artifact this
// process is serving.
func (s *Service) Train(ctx context.Context, dir string) (*mmm.ModelArtifact, error) {
	return s.TrainKind(ctx, s.modelKind, dir)
}

// TrainKind is Train with an explicit model kind, letting the training
// CLI fit both variants over one ingestion pass.
func (s *Service) TrainKind(ctx context.Context, kind mmm.Kind, dir string) (*mmm.ModelArtifact, error) {
	started := time.Now()

	ingestor := ingest.New(append([]ingest.Option{
		ingest.WithLogger(s.logger),
		ingest.WithTrainingChecks(true),
	}, s.ingestOpts...)...)

	ds, err := ingestor.Run(ctx, dir)
	if err != nil {
		metrics.RecordTrainingRun(string(kind), "ingest_error")
		return nil, err
	}

	if s.processedDir != "" {
		if path, serr := s.datasets.Save(ctx, s.processedDir, ds); serr != nil {
			s.logger.Warn(ctx, "failed to persist cleaned dataset", logger.Error(serr))
		} else {
			s.logger.Info(ctx, "cleaned dataset persisted", logger.String("path", path))
		}
	}

	fm, err := transform.Features(ds, s.decay)
	if err != nil {
		metrics.RecordTrainingRun(string(kind), "transform_error")
		return nil, err
	}
	target := transform.Target(ds.Sales)

	est, err := s.newEstimator(kind, s.decay)
	if err != nil {
		return nil, err
	}
	art, err := est.Fit(ctx, fm, target)
	if err != nil {
		metrics.RecordTrainingRun(string(kind), "fit_error")
		return nil, err
	}

	// In-sample fit quality, logged for the training operator.
	if forecast, perr := est.Predict(ctx, art, fm); perr == nil {
		if result, eerr := evaluation.Evaluate(forecast.Values(), ds.Sales); eerr == nil {
			s.logger.Info(ctx, "in-sample fit quality",
				logger.String("model_kind", string(kind)),
				logger.Float64("mape", result.MAPE),
				logger.Float64("r2", result.R2))
		}
	}

	metrics.RecordTrainingRun(string(kind), "ok")
	metrics.RecordTrainingDuration(time.Since(started).Seconds())
	s.logger.Info(ctx, "training complete",
		logger.String("model_kind", string(kind)),
		logger.Duration("elapsed", time.Since(started)))
	return art, nil
}

// Predict ingests an uploaded channel set, validates it against the
// loaded artifact's feature names, applies the artifact's stored decay,
// and assembles the forecast plus optional evaluation. The request-scoped
// feature matrix and forecast are discarded after the call.
func (s *Service) Predict(ctx context.Context, dir string) (*types.PredictionResult, error) {
	s.mu.RLock()
	art := s.artifact
	est := s.estimator
	s.mu.RUnlock()
	if art == nil {
		return nil, mmm.ErrNilArtifact
	}

	ingestor := ingest.New(append([]ingest.Option{
		ingest.WithLogger(s.logger),
		ingest.WithTrainingChecks(false),
	}, s.ingestOpts...)...)

	ds, err := ingestor.Run(ctx, dir)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	fm, err := transform.Features(ds, art.AdstockDecay)
	if err != nil {
		return nil, err
	}
	forecast, err := est.Predict(ctx, art, fm)
	if err != nil {
		return nil, err
	}
	metrics.RecordPredictLatency(float64(time.Since(started).Milliseconds()))

	result := &types.PredictionResult{
		Forecast:      forecast,
		ModelKind:     string(art.Kind),
		AdstockDecay:  art.AdstockDecay,
		RowsProcessed: ds.Rows(),
	}

	if ds.HasSales() {
		// An unevaluable sales column must not discard a valid forecast;
		// the failure is reported alongside it instead.
		if eval, eerr := evaluation.Evaluate(forecast.Values(), ds.Sales); eerr != nil {
			s.logger.Warn(ctx, "evaluation skipped", logger.Error(eerr))
			result.EvaluationError = eerr.Error()
		} else {
			result.Evaluation = &eval
			metrics.RecordEvaluation(eval.MAPE)
		}
	}

	s.predictions.Add(1)
	s.rowsProcessed.Add(int64(ds.Rows()))
	metrics.RecordPredictionServed()
	metrics.RecordPredictionRows(ds.Rows())
	s.logger.Info(ctx, "prediction served",
		logger.Int("rows", ds.Rows()),
		logger.Duration("elapsed", time.Since(started)))
	return result, nil
}

// Info describes the active artifact without exposing raw coefficients.
func (s *Service) Info() (types.ModelInfo, error) {
	s.mu.RLock()
	art := s.artifact
	s.mu.RUnlock()
	if art == nil {
		return types.ModelInfo{}, mmm.ErrNilArtifact
	}

	info := types.ModelInfo{
		ArtifactID:    art.ID,
		Kind:          string(art.Kind),
		AdstockDecay:  art.AdstockDecay,
		FeatureNames:  append([]string(nil), art.FeatureNames...),
		TrainingStart: art.TrainingRange.Start,
		TrainingEnd:   art.TrainingRange.End,
		TrainedAt:     art.TrainedAt,
	}
	if d := art.Fitted.Diagnostics; d != nil {
		info.Sampler = &types.SamplerInfo{
			Draws:          d.Draws,
			Warmup:         d.Warmup,
			Chains:         d.Chains,
			Seed:           d.Seed,
			MaxRHat:        d.MaxRHat,
			AcceptanceRate: d.AcceptanceRate,
		}
	}
	if iv := art.Fitted.InterceptInterval; iv != nil {
		info.InterceptInterval = &types.CredibleInterval{Low: iv.Low, High: iv.High}
	}
	if len(art.Fitted.CoefficientIntervals) == len(art.FeatureNames) {
		intervals := make(map[string]types.CredibleInterval, len(art.FeatureNames))
		for i, name := range art.FeatureNames {
			iv := art.Fitted.CoefficientIntervals[i]
			intervals[name] = types.CredibleInterval{Low: iv.Low, High: iv.High}
		}
		info.CoefficientIntervals = intervals
	}
	return info, nil
}

// GetStats returns current service statistics.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	state := s.state
	art := s.artifact
	s.mu.RUnlock()

	stats := map[string]interface{}{
		"state":          state,
		"ready":          art != nil,
		"model_kind":     string(s.modelKind),
		"predictions":    s.predictions.Load(),
		"rows_processed": s.rowsProcessed.Load(),
	}
	if art != nil {
		stats["adstock_decay"] = art.AdstockDecay
		stats["feature_count"] = len(art.FeatureNames)
		stats["artifact_id"] = art.ID
	}
	return stats
}
