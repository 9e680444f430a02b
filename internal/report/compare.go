package report

import (
	"encoding/csv"
	"io"
	"math"
)

// defaultAlignToleranceMM bounds Z matching when a group carries no usable
// layer height to derive a tolerance from.
const defaultAlignToleranceMM = 0.1

// CompareRow pairs one group of the profiled run with its Z-aligned group
// in the baseline. Deltas are run minus baseline, so positive time deltas
// mean the run is slower.
type CompareRow struct {
	ZMM float64 `json:"z_mm"`

	LayerA int `json:"layer_a"`
	LayerB int `json:"layer_b"`

	TimeAS     float64 `json:"time_a_s"`
	TimeBS     float64 `json:"time_b_s"`
	TimeDeltaS float64 `json:"time_delta_s"`

	P99SpeedAMMPerS     float64 `json:"p99_speed_a_mm_s"`
	P99SpeedBMMPerS     float64 `json:"p99_speed_b_mm_s"`
	P99SpeedDeltaMMPerS float64 `json:"p99_speed_delta_mm_s"`

	P99FlowAMM3PerS     float64 `json:"p99_flow_a_mm3_s"`
	P99FlowBMM3PerS     float64 `json:"p99_flow_b_mm3_s"`
	P99FlowDeltaMM3PerS float64 `json:"p99_flow_delta_mm3_s"`
}

// Comparison aligns two reports group by group. A is the profiled run, B
// the baseline it is measured against.
type Comparison struct {
	Rows []CompareRow `json:"rows"`

	TotalTimeAS     float64 `json:"total_time_a_s"`
	TotalTimeBS     float64 `json:"total_time_b_s"`
	TotalTimeDeltaS float64 `json:"total_time_delta_s"`

	// UnmatchedA and UnmatchedB count groups on either side that found no
	// partner within the Z tolerance. Nonzero values usually mean the two
	// files slice different geometry.
	UnmatchedA int `json:"unmatched_a"`
	UnmatchedB int `json:"unmatched_b"`
}

// Compare aligns the groups of a and b by representative Z. Two groups
// match when their Z differs by at most half the run group's layer height,
// falling back to defaultAlignToleranceMM when that height is unusable.
// Each baseline group is consumed at most once, so reslicing a model to a
// different layer count shows up as unmatched rows instead of double
// counting.
func Compare(a, b *Report) *Comparison {
	cmp := &Comparison{
		TotalTimeAS: a.Totals.TimeS,
		TotalTimeBS: b.Totals.TimeS,
	}
	cmp.TotalTimeDeltaS = cmp.TotalTimeAS - cmp.TotalTimeBS

	matchedB := 0
	bi := 0
	for _, ga := range a.Groups {
		for bi+1 < len(b.Groups) && math.Abs(b.Groups[bi+1].ZMM-ga.ZMM) < math.Abs(b.Groups[bi].ZMM-ga.ZMM) {
			bi++
		}
		if bi >= len(b.Groups) {
			cmp.UnmatchedA++
			continue
		}

		gb := b.Groups[bi]
		tol := ga.LayerHeightMM / 2
		if tol <= 0 {
			tol = defaultAlignToleranceMM
		}
		if math.Abs(gb.ZMM-ga.ZMM) > tol {
			cmp.UnmatchedA++
			continue
		}

		cmp.Rows = append(cmp.Rows, CompareRow{
			ZMM: ga.ZMM,

			LayerA: ga.Layer,
			LayerB: gb.Layer,

			TimeAS:     ga.TimeS,
			TimeBS:     gb.TimeS,
			TimeDeltaS: ga.TimeS - gb.TimeS,

			P99SpeedAMMPerS:     ga.P99SpeedMMPerS,
			P99SpeedBMMPerS:     gb.P99SpeedMMPerS,
			P99SpeedDeltaMMPerS: ga.P99SpeedMMPerS - gb.P99SpeedMMPerS,

			P99FlowAMM3PerS:     ga.P99FlowMM3PerS,
			P99FlowBMM3PerS:     gb.P99FlowMM3PerS,
			P99FlowDeltaMM3PerS: ga.P99FlowMM3PerS - gb.P99FlowMM3PerS,
		})
		matchedB++
		bi++
	}
	cmp.UnmatchedB = len(b.Groups) - matchedB

	return cmp
}

var compareHeader = []string{
	"z_mm", "layer_a", "layer_b",
	"time_a_s", "time_b_s", "time_delta_s",
	"p99_speed_a_mm_s", "p99_speed_b_mm_s", "p99_speed_delta_mm_s",
	"p99_flow_a_mm3_s", "p99_flow_b_mm3_s", "p99_flow_delta_mm3_s",
}

func (c *Comparison) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(compareHeader); err != nil {
		return err
	}
	for _, row := range c.Rows {
		rec := []string{
			csvFloat(row.ZMM),
			csvInt(int64(row.LayerA)),
			csvInt(int64(row.LayerB)),
			csvFloat(row.TimeAS),
			csvFloat(row.TimeBS),
			csvFloat(row.TimeDeltaS),
			csvFloat(row.P99SpeedAMMPerS),
			csvFloat(row.P99SpeedBMMPerS),
			csvFloat(row.P99SpeedDeltaMMPerS),
			csvFloat(row.P99FlowAMM3PerS),
			csvFloat(row.P99FlowBMM3PerS),
			csvFloat(row.P99FlowDeltaMM3PerS),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
