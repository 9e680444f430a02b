// Package stats provides pure statistical primitives over weighted samples.
//
// Weights are durations in seconds, so every aggregate here is a
// time-weighted view of the value stream rather than a per-sample one.
// All functions tolerate empty or degenerate input and return 0 sentinels
// instead of NaN or panics.
package stats

import "sort"

// WeightedSample pairs an observed value with the weight it carries,
// typically the number of seconds the value was in effect.
type WeightedSample struct {
	Value  float64
	Weight float64
}

// TotalWeight returns the sum of the positive weights in samples.
func TotalWeight(samples []WeightedSample) float64 {
	var total float64
	for _, s := range samples {
		if s.Weight > 0 {
			total += s.Weight
		}
	}
	return total
}

// Percentile computes the time-weighted percentile p (0-100) of the samples.
//
// Samples are sorted by value; the result is the value at which the running
// cumulative weight first reaches p/100 of the total, linearly interpolated
// between the two bracketing sorted points by cumulative-weight fraction.
// Consequences: Percentile(s, 100) equals Peak(s) whenever all weights are
// positive, and the result is monotonically non-decreasing in p.
//
// Samples with non-positive weight are ignored. If none remain, the
// remaining values are treated as equally weighted. An empty input returns 0.
func Percentile(samples []WeightedSample, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	sorted := make([]WeightedSample, 0, len(samples))
	for _, s := range samples {
		if s.Weight > 0 {
			sorted = append(sorted, s)
		}
	}
	if len(sorted) == 0 {
		// Zero total weight: fall back to uniform weighting so the
		// percentile stays within the observed value range.
		for _, s := range samples {
			sorted = append(sorted, WeightedSample{Value: s.Value, Weight: 1})
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value < sorted[j].Value })

	if p <= 0 {
		return sorted[0].Value
	}
	if p >= 100 {
		return sorted[len(sorted)-1].Value
	}

	var total float64
	for _, s := range sorted {
		total += s.Weight
	}
	target := p / 100 * total

	var cum float64
	for i, s := range sorted {
		prev := cum
		cum += s.Weight
		if cum < target {
			continue
		}
		if i == 0 {
			return s.Value
		}
		// cum >= target > prev, so s.Weight is strictly positive here.
		frac := (target - prev) / s.Weight
		lower := sorted[i-1].Value
		return lower + frac*(s.Value-lower)
	}
	return sorted[len(sorted)-1].Value
}

// Peak returns the maximum sample value, ignoring weights entirely; a
// worst-case observation should not be diluted by how briefly it held.
// An empty input returns 0.
func Peak(samples []WeightedSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	max := samples[0].Value
	for _, s := range samples[1:] {
		if s.Value > max {
			max = s.Value
		}
	}
	return max
}

// WeightedMean returns sum(value*weight)/sum(weight) over the samples,
// skipping non-positive weights. Zero total weight returns 0.
func WeightedMean(samples []WeightedSample) float64 {
	var total, acc float64
	for _, s := range samples {
		if s.Weight > 0 {
			total += s.Weight
			acc += s.Value * s.Weight
		}
	}
	if total <= 0 {
		return 0
	}
	return acc / total
}

// FractionOver returns the fraction of total weight whose value lies
// strictly above threshold. Zero total weight returns 0.
func FractionOver(samples []WeightedSample, threshold float64) float64 {
	var total, over float64
	for _, s := range samples {
		if s.Weight <= 0 {
			continue
		}
		total += s.Weight
		if s.Value > threshold {
			over += s.Weight
		}
	}
	if total <= 0 {
		return 0
	}
	return over / total
}
