package stats

import (
	"math"
	"testing"
)

func TestMakeBins(t *testing.T) {
	tests := []struct {
		name string
		min  float64
		max  float64
		n    int
		want []Bin
	}{
		{"two even bins", 1, 5, 2, []Bin{{1, 3}, {3, 5}}},
		{"bin count below one is raised", 0, 10, 0, []Bin{{0, 10}}},
		{"inverted range swaps", 5, 1, 2, []Bin{{1, 3}, {3, 5}}},
		{"collapsed range degenerates", 4, 4, 3, []Bin{{4, 4}}},
		{"negative span", -10, 0, 2, []Bin{{-10, -5}, {-5, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MakeBins(tt.min, tt.max, tt.n)
			if len(got) != len(tt.want) {
				t.Fatalf("MakeBins(%v, %v, %d) = %v bins, want %v", tt.min, tt.max, tt.n, len(got), len(tt.want))
			}
			for i := range got {
				if math.Abs(got[i].Lo-tt.want[i].Lo) > 1e-9 || math.Abs(got[i].Hi-tt.want[i].Hi) > 1e-9 {
					t.Errorf("bin %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMakeBinsLastEdgeExact(t *testing.T) {
	// 0.1 steps accumulate float error; the final edge must still be the
	// exact maximum so Counts can close the last bin on it.
	bins := MakeBins(0, 0.7, 7)
	if got := bins[len(bins)-1].Hi; got != 0.7 {
		t.Errorf("last edge = %v, want exactly 0.7", got)
	}
}

func TestCounts(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		bins   []Bin
		want   []int
	}{
		{
			name:   "derived range half-open except last",
			values: []float64{1, 2, 3, 4, 5},
			bins:   MakeBins(1, 5, 2),
			want:   []int{2, 3},
		},
		{
			name:   "lower bound inclusive",
			values: []float64{0, 0, 5},
			bins:   MakeBins(0, 10, 2),
			want:   []int{3, 0},
		},
		{
			name:   "maximum lands in last bin",
			values: []float64{10},
			bins:   MakeBins(0, 10, 2),
			want:   []int{0, 1},
		},
		{
			name:   "out of range clamps to edge bins",
			values: []float64{-5, 99},
			bins:   MakeBins(0, 10, 2),
			want:   []int{1, 1},
		},
		{
			name:   "no bins",
			values: []float64{1, 2},
			bins:   nil,
			want:   []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Counts(tt.values, tt.bins)
			if len(got) != len(tt.want) {
				t.Fatalf("Counts = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Counts = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestWeightedCounts(t *testing.T) {
	bins := MakeBins(0, 10, 2)
	samples := []WeightedSample{
		{Value: 1, Weight: 2.5},
		{Value: 4, Weight: 0.5},
		{Value: 9, Weight: 4},
		{Value: 2, Weight: 0},  // skipped
		{Value: 3, Weight: -1}, // skipped
	}
	got := WeightedCounts(samples, bins)
	want := []float64{3, 4}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("WeightedCounts = %v, want %v", got, want)
		}
	}
}
