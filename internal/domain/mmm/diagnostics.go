package mmm

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// splitRHat computes the split R-hat statistic for one parameter across
// chains: each chain is halved, and between/within variance of the halves
// is compared. Values near 1 indicate the chains agree; values above the
// threshold mean the posterior sample cannot be trusted.
func splitRHat(chains [][]float64) float64 {
	var halves [][]float64
	for _, chain := range chains {
		if len(chain) < 4 {
			return math.Inf(1)
		}
		mid := len(chain) / 2
		halves = append(halves, chain[:mid], chain[mid:mid*2])
	}

	m := len(halves)
	nn := len(halves[0])

	means := make([]float64, m)
	vars := make([]float64, m)
	for i, h := range halves {
		means[i] = stat.Mean(h, nil)
		vars[i] = stat.Variance(h, nil)
	}

	w := stat.Mean(vars, nil)
	b := float64(nn) * stat.Variance(means, nil)
	if w == 0 {
		// Degenerate chains (constant draws) agree trivially.
		return 1
	}

	varPlus := (float64(nn-1)/float64(nn))*w + b/float64(nn)
	return math.Sqrt(varPlus / w)
}
