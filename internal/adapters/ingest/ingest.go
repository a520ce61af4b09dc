// Package ingest discovers, joins, validates, and cleans raw per-channel
// CSV uploads into a date-aligned dataset ready for the feature transform.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/mmx/internal/domain/series"
	"github.com/okian/mmx/pkg/logger"
	"github.com/okian/mmx/pkg/metrics"
)

// Default ingestion configuration constants.
const (
	defaultSpendPattern = "*_spend*"
	defaultSalesName    = "sales_data"
	defaultMinRows      = 30
	defaultMinChannels  = 2
)

// Ingestor turns a directory of channel CSVs into a cleaned Dataset.
type Ingestor struct {
	spendPattern string
	salesName    string
	minRows      int
	minChannels  int
	training     bool
	logger       logger.Logger
}

// Option applies a configuration option to the Ingestor.
type Option func(*Ingestor)

// WithSpendPattern sets the glob matching channel spend files.
func WithSpendPattern(pattern string) Option {
	return func(ing *Ingestor) {
		if pattern != "" {
			ing.spendPattern = pattern
		}
	}
}

// WithSalesFileName sets the stem of the sales CSV.
func WithSalesFileName(name string) Option {
	return func(ing *Ingestor) {
		if name != "" {
			ing.salesName = name
		}
	}
}

// WithMinRows sets the minimum row count for training datasets.
func WithMinRows(n int) Option {
	return func(ing *Ingestor) {
		if n > 0 {
			ing.minRows = n
		}
	}
}

// WithMinChannels sets the minimum channel count for training datasets.
func WithMinChannels(n int) Option {
	return func(ing *Ingestor) {
		if n > 0 {
			ing.minChannels = n
		}
	}
}

// WithTrainingChecks toggles training-grade validation: minimum history
// length, minimum channel count, a mandatory sales file, and zero-sales
// interpolation. Prediction uploads use relaxed checks.
func WithTrainingChecks(training bool) Option {
	return func(ing *Ingestor) {
		ing.training = training
	}
}

// WithLogger sets a custom logger for the ingestor.
func WithLogger(l logger.Logger) Option {
	return func(ing *Ingestor) {
		if l != nil {
			ing.logger = l
		}
	}
}

// New creates an Ingestor with configuration options.
func New(opts ...Option) *Ingestor {
	ing := &Ingestor{
		spendPattern: defaultSpendPattern,
		salesName:    defaultSalesName,
		minRows:      defaultMinRows,
		minChannels:  defaultMinChannels,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Run executes the full pipeline over dir: discover -> parse -> join ->
// validate -> clean. The returned dataset is gap-free, non-negative, and
// sorted on a unique ascending date axis.
func (ing *Ingestor) Run(ctx context.Context, dir string) (series.Dataset, error) {
	channels, err := ing.loadSpend(dir)
	if err != nil {
		metrics.RecordIngestError("spend")
		return series.Dataset{}, err
	}

	sales, err := ing.loadSales(dir)
	if err != nil {
		metrics.RecordIngestError("sales")
		return series.Dataset{}, err
	}

	ds := join(channels, sales)

	if err := ing.validate(ds); err != nil {
		metrics.RecordIngestError("validate")
		return series.Dataset{}, err
	}

	if err := clean(&ds, ing.training); err != nil {
		metrics.RecordIngestError("clean")
		return series.Dataset{}, err
	}

	metrics.RecordIngestRows(ds.Rows())
	if ing.logger != nil {
		ing.logger.Info(ctx, "ingestion complete",
			logger.Int("rows", ds.Rows()),
			logger.Int("channels", len(ds.Channels)),
			logger.Any("has_sales", ds.HasSales()))
	}
	return ds, nil
}

func (ing *Ingestor) loadSpend(dir string) ([]series.ChannelSeries, error) {
	matches, err := filepath.Glob(filepath.Join(dir, ing.spendPattern))
	if err != nil {
		return nil, fmt.Errorf("bad spend pattern %q: %w", ing.spendPattern, err)
	}

	var channels []series.ChannelSeries
	for _, path := range matches {
		if !strings.EqualFold(filepath.Ext(path), ".csv") {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		cs, perr := parseSeriesFile(path, name)
		if perr != nil {
			return nil, perr
		}
		metrics.RecordIngestFile()
		channels = append(channels, cs)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: pattern %q in %s", ErrNoSpendFiles, ing.spendPattern, dir)
	}
	return channels, nil
}

func (ing *Ingestor) loadSales(dir string) (*series.ChannelSeries, error) {
	path := filepath.Join(dir, ing.salesName+".csv")
	if _, err := os.Stat(path); err != nil {
		if ing.training {
			return nil, fmt.Errorf("%w: %s", ErrMissingSales, path)
		}
		return nil, nil // prediction uploads may omit actuals
	}
	cs, err := parseSeriesFile(path, "sales")
	if err != nil {
		return nil, err
	}
	metrics.RecordIngestFile()
	return &cs, nil
}

func (ing *Ingestor) validate(ds series.Dataset) error {
	if ing.training {
		if ds.Rows() < ing.minRows {
			return fmt.Errorf("%w: need at least %d days, got %d", ErrNotEnoughRows, ing.minRows, ds.Rows())
		}
		if len(ds.Channels) < ing.minChannels {
			return fmt.Errorf("%w: need at least %d, got %d", ErrNotEnoughChannels, ing.minChannels, len(ds.Channels))
		}
		return nil
	}
	if ds.Rows() == 0 {
		return fmt.Errorf("%w: upload contained no rows", ErrNotEnoughRows)
	}
	if len(ds.Channels) == 0 {
		return fmt.Errorf("%w: upload contained no spend files", ErrNoSpendFiles)
	}
	return nil
}
