package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/okian/mmx/internal/domain/series"
)

// Cleaned dataset file name, matching the processed-data convention.
const datasetFileName = "cleaned_data.parquet"

// salesColumn is the reserved column name for the sales series.
const salesColumn = "sales"

// DatasetStore persists cleaned datasets between the ingestion pipeline
// and later training runs.
type DatasetStore interface {
	Save(ctx context.Context, dir string, ds series.Dataset) (string, error)
	Load(ctx context.Context, dir string) (series.Dataset, error)
}

// datasetRecord is the long-format parquet row: one (date, column, value)
// triple per cell. Long format keeps the parquet schema static while the
// channel set varies per dataset.
type datasetRecord struct {
	Date   string  `parquet:"date,dict"`
	Column string  `parquet:"column,dict"`
	Value  float64 `parquet:"value"`
}

// ParquetDatasetStore stores cleaned datasets as snappy-compressed
// parquet files, one file per directory.
type ParquetDatasetStore struct{}

// NewParquetDatasetStore creates a parquet-backed dataset store.
func NewParquetDatasetStore() *ParquetDatasetStore {
	return &ParquetDatasetStore{}
}

// Save writes the dataset under dir and returns the file location.
func (s *ParquetDatasetStore) Save(_ context.Context, dir string, ds series.Dataset) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dataset dir: %w", err)
	}

	records := make([]datasetRecord, 0, ds.Rows()*(len(ds.Channels)+1))
	for _, name := range ds.Channels {
		col := ds.Spend[name]
		for i, d := range ds.Dates {
			records = append(records, datasetRecord{
				Date:   d.Format(series.DateLayout),
				Column: name,
				Value:  col[i],
			})
		}
	}
	if ds.Sales != nil {
		for i, d := range ds.Dates {
			records = append(records, datasetRecord{
				Date:   d.Format(series.DateLayout),
				Column: salesColumn,
				Value:  ds.Sales[i],
			})
		}
	}

	path := filepath.Join(dir, datasetFileName)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create dataset file: %w", err)
	}
	if err := parquet.Write(f, records, parquet.Compression(&parquet.Snappy)); err != nil {
		f.Close() //nolint:errcheck,gosec // already failing
		return "", fmt.Errorf("write dataset: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close dataset file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("commit dataset file: %w", err)
	}
	return path, nil
}

// Load reads a dataset previously written by Save and pivots it back into
// wide form with a sorted date axis and sorted channel order.
func (s *ParquetDatasetStore) Load(_ context.Context, dir string) (series.Dataset, error) {
	path := filepath.Join(dir, datasetFileName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return series.Dataset{}, fmt.Errorf("%w: %s", ErrDatasetNotFound, path)
		}
		return series.Dataset{}, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only descriptor

	info, err := f.Stat()
	if err != nil {
		return series.Dataset{}, fmt.Errorf("stat dataset %s: %w", path, err)
	}
	records, err := parquet.Read[datasetRecord](f, info.Size())
	if err != nil {
		return series.Dataset{}, fmt.Errorf("read dataset %s: %w", path, err)
	}

	dateSet := make(map[string]struct{})
	columns := make(map[string]map[string]float64)
	for _, rec := range records {
		dateSet[rec.Date] = struct{}{}
		if columns[rec.Column] == nil {
			columns[rec.Column] = make(map[string]float64)
		}
		columns[rec.Column][rec.Date] = rec.Value
	}

	dateKeys := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dateKeys = append(dateKeys, d)
	}
	sort.Strings(dateKeys)

	ds := series.Dataset{
		Dates: make([]time.Time, len(dateKeys)),
		Spend: make(map[string][]float64),
	}
	for i, key := range dateKeys {
		t, perr := time.Parse(series.DateLayout, key)
		if perr != nil {
			return series.Dataset{}, fmt.Errorf("bad date %q in dataset %s: %w", key, path, perr)
		}
		ds.Dates[i] = t
	}

	for name, cells := range columns {
		col := make([]float64, len(dateKeys))
		for i, key := range dateKeys {
			col[i] = cells[key]
		}
		if name == salesColumn {
			ds.Sales = col
			continue
		}
		ds.Channels = append(ds.Channels, name)
		ds.Spend[name] = col
	}
	ds.SortChannels()
	return ds, nil
}
