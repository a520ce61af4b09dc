package ingest

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/okian/mmx/internal/domain/series"
)

// Outlier detection constants.
const (
	// extremeMultiplier marks values beyond this multiple of the 95th
	// percentile as recording glitches rather than real spend.
	extremeMultiplier = 20.0
	highQuantile      = 0.95
)

// clean repairs a joined dataset in place: negatives, extreme highs, and
// missing cells are replaced by linear interpolation between their valid
// neighbors. Zero sales days are treated as unrealistic only while
// assembling training data; at prediction time zeros stay untouched and
// the evaluator's zero policy applies instead.
func clean(ds *series.Dataset, interpolateZeroSales bool) error {
	for _, name := range ds.Channels {
		if err := cleanColumn(name, ds.Spend[name], false); err != nil {
			return err
		}
	}
	if ds.Sales != nil {
		if err := cleanColumn("sales", ds.Sales, interpolateZeroSales); err != nil {
			return err
		}
	}
	if !ds.Complete() {
		return fmt.Errorf("%w: unresolved gaps remain", ErrCleaningFailed)
	}
	return nil
}

func cleanColumn(name string, values []float64, zeroIsMissing bool) error {
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return fmt.Errorf("%w: %s", ErrAllMissing, name)
	}
	sort.Float64s(valid)
	threshold := extremeMultiplier * stat.Quantile(highQuantile, stat.Empirical, valid, nil)

	fix := make([]bool, len(values))
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			fix[i] = true
		case v < 0:
			fix[i] = true
		case threshold > 0 && v > threshold:
			fix[i] = true
		case zeroIsMissing && v == 0:
			fix[i] = true
		}
	}
	if err := interpolate(values, fix); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	for _, v := range values {
		if math.IsNaN(v) || v < 0 {
			return fmt.Errorf("%w: %s still has invalid values", ErrCleaningFailed, name)
		}
	}
	return nil
}

// interpolate replaces marked cells with values on the straight line
// between the nearest unmarked neighbors. Marked runs at either edge take
// the nearest unmarked value.
func interpolate(values []float64, fix []bool) error {
	n := len(values)
	anchors := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !fix[i] {
			anchors = append(anchors, i)
		}
	}
	if len(anchors) == 0 {
		return ErrAllMissing
	}

	for i := 0; i < n; i++ {
		if !fix[i] {
			continue
		}
		// Nearest anchors on each side.
		k := sort.SearchInts(anchors, i)
		switch {
		case k == 0:
			values[i] = values[anchors[0]]
		case k == len(anchors):
			values[i] = values[anchors[len(anchors)-1]]
		default:
			lo, hi := anchors[k-1], anchors[k]
			frac := float64(i-lo) / float64(hi-lo)
			values[i] = values[lo] + frac*(values[hi]-values[lo])
		}
	}
	return nil
}
