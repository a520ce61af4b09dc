package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/okian/mmx/internal/domain/series"
)

// Accepted date layouts, tried in order.
var dateLayouts = []string{ //nolint:gochecknoglobals // static parse table
	series.DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// parseSeriesFile reads one two-column (date, value) CSV into a channel
// series named after the file stem. The first row is skipped as a header
// when its date cell does not parse.
func parseSeriesFile(path, name string) (series.ChannelSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return series.ChannelSeries{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only descriptor

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // shape is validated per row for a better message
	records, err := r.ReadAll()
	if err != nil {
		return series.ChannelSeries{}, fmt.Errorf("%s: %w", name, err)
	}

	cs := series.ChannelSeries{Name: name}
	seen := make(map[time.Time]struct{}, len(records))
	for i, rec := range records {
		if len(rec) != 2 {
			return series.ChannelSeries{}, fmt.Errorf("%w: %s row %d has %d columns", ErrBadFileShape, name, i+1, len(rec))
		}

		date, derr := parseDate(strings.TrimSpace(rec[0]))
		if derr != nil {
			if i == 0 {
				// Header row.
				continue
			}
			return series.ChannelSeries{}, fmt.Errorf("%w: %s row %d: %q", ErrUnparsableDate, name, i+1, rec[0])
		}

		value, verr := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if verr != nil {
			return series.ChannelSeries{}, fmt.Errorf("%w: %s row %d: %q", ErrNonNumericValue, name, i+1, rec[1])
		}

		if _, dup := seen[date]; dup {
			return series.ChannelSeries{}, fmt.Errorf("%w: %s: %s", ErrDuplicateDate, name, date.Format(series.DateLayout))
		}
		seen[date] = struct{}{}
		cs.Points = append(cs.Points, series.Point{Date: date, Value: value})
	}

	if len(cs.Points) == 0 {
		return series.ChannelSeries{}, fmt.Errorf("%w: %s", ErrEmptyFile, name)
	}
	return cs, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			// Normalize to a date-only axis in UTC.
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
