package stats

import "math"

// Bin is one half-open histogram interval [Lo, Hi); the final bin of a
// spec closes on the right so the global maximum lands inside it.
type Bin struct {
	Lo float64
	Hi float64
}

// MakeBins splits [min, max] into n equal-width bins. A bin count below 1
// is raised to 1, an inverted range is swapped, and a collapsed range
// (max ~ min) yields a single degenerate bin.
func MakeBins(min, max float64, n int) []Bin {
	if n < 1 {
		n = 1
	}
	if max < min {
		min, max = max, min
	}
	if closeEnough(min, max) {
		return []Bin{{Lo: min, Hi: max}}
	}
	step := (max - min) / float64(n)
	out := make([]Bin, 0, n)
	lo := min
	for i := 0; i < n; i++ {
		hi := min + float64(i+1)*step
		if i == n-1 {
			// Pin the last edge to the exact maximum so accumulated
			// floating point error cannot exclude it.
			hi = max
		}
		out = append(out, Bin{Lo: lo, Hi: hi})
		lo = hi
	}
	return out
}

// Counts places each value into its bin and returns the per-bin tallies.
// Every bin is inclusive at Lo and exclusive at Hi except the last, which
// includes Hi. Values outside the bin range clamp into the first or last bin.
func Counts(values []float64, bins []Bin) []int {
	counts := make([]int, len(bins))
	if len(bins) == 0 {
		return counts
	}
	for _, v := range values {
		counts[binIndex(v, bins)]++
	}
	return counts
}

// WeightedCounts is Counts with each value contributing its weight instead
// of 1, producing a time-weighted histogram. Non-positive weights are skipped.
func WeightedCounts(samples []WeightedSample, bins []Bin) []float64 {
	weights := make([]float64, len(bins))
	if len(bins) == 0 {
		return weights
	}
	for _, s := range samples {
		if s.Weight <= 0 {
			continue
		}
		weights[binIndex(s.Value, bins)] += s.Weight
	}
	return weights
}

func binIndex(v float64, bins []Bin) int {
	last := len(bins) - 1
	for i, b := range bins {
		if i < last {
			if v >= b.Lo && v < b.Hi {
				return i
			}
		} else if v >= b.Lo && v <= b.Hi {
			return i
		}
	}
	if v < bins[0].Lo {
		return 0
	}
	return last
}

func closeEnough(a, b float64) bool {
	// Mirrors the tolerance of math.isclose with default relative epsilon.
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	return diff <= 1e-9*scale || diff == 0
}
