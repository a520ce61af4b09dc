// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...Option) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Model kind identifiers accepted by the service.
const (
	ModelKindLinear   = "linear"
	ModelKindBayesian = "bayesian"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ModelKind selects the served estimator: linear or bayesian.
	ModelKind string `koanf:"model_kind"`

	// AdstockDecay is the carryover decay applied to every spend channel.
	// A single shared value is a deliberate simplification; per-channel
	// decay would require extending the artifact schema.
	AdstockDecay float64 `koanf:"adstock_decay"`

	// ArtifactPath points at the trained model artifact loaded at startup.
	ArtifactPath string `koanf:"artifact_path"`

	// RawDataDir is scanned for channel spend CSVs during training.
	RawDataDir string `koanf:"raw_data_dir"`

	// ProcessedDataDir receives the cleaned dataset parquet after training.
	ProcessedDataDir string `koanf:"processed_data_dir"`

	// SpendFilePattern globs channel spend files inside a data directory.
	SpendFilePattern string `koanf:"spend_file_pattern"`

	// SalesFileName is the stem of the sales CSV (without extension).
	SalesFileName string `koanf:"sales_file_name"`

	// MinTrainingRows and MinChannels gate a training dataset.
	MinTrainingRows int `koanf:"min_training_rows"`
	MinChannels     int `koanf:"min_channels"`

	// Bayesian sampler settings. Sampling only runs in the offline
	// training path, never inside a request handler.
	BayesDraws  int    `koanf:"bayes_draws"`
	BayesWarmup int    `koanf:"bayes_warmup"`
	BayesChains int    `koanf:"bayes_chains"`
	BayesSeed   uint64 `koanf:"bayes_seed"`

	// MaxUploadBytes caps the multipart body of POST /predictions.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// New creates a Config populated with defaults.
func New() *Config {
	c := &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		ModelKind:        ModelKindBayesian,
		AdstockDecay:     0.3,
		ArtifactPath:     "data_files/models/trained_bayesian_model.json",
		RawDataDir:       "data_files/raw",
		ProcessedDataDir: "data_files/processed",
		SpendFilePattern: "*_spend*",
		SalesFileName:    "sales_data",
		MinTrainingRows:  30,
		MinChannels:      2,
		BayesDraws:       2000,
		BayesWarmup:      1000,
		BayesChains:      2,
		BayesSeed:        42,
		MaxUploadBytes:   32 << 20,
	}
	return c
}
