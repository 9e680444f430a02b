package pipeline

import (
	"github.com/gcodelens/gcodelens/internal/gcode"
	"github.com/gcodelens/gcodelens/internal/stats"
)

// Histogram is a finalized weighted histogram: seconds of print time per bin.
type Histogram struct {
	Bins    []stats.Bin
	Weights []float64
}

// Summary is the immutable statistical profile of one accumulation bucket
// (a group, a category, or the whole print). Produced by Aggregator.Finalize.
type Summary struct {
	Events          int64
	ExtrudingEvents int64

	TimeS          float64
	ExtrudingTimeS float64
	TravelTimeS    float64

	DistanceMM       float64
	TravelDistanceMM float64
	ExtrusionMM      float64
	RetractionMM     float64
	Retracts         int64

	// ShortFastSegments counts extruding moves shorter than shortSegmentMM
	// executed above fastSpeedMMPerS, a proxy for high-dynamics regions.
	ShortFastSegments int64

	MeanSpeedMMPerS float64
	PeakSpeedMMPerS float64
	P95SpeedMMPerS  float64
	P99SpeedMMPerS  float64

	MeanFlowMM3PerS float64
	PeakFlowMM3PerS float64
	P95FlowMM3PerS  float64
	P99FlowMM3PerS  float64

	MeanFanPct float64

	// Last-seen setpoints; nil when the stream never set them.
	HotendC  *float64
	BedC     *float64
	ChamberC *float64

	// LastZ is the Z coordinate of the bucket's final event.
	LastZ float64

	// Fraction of print time spent above the configured limits; 0 when the
	// corresponding limit is unset.
	TimeOverSpeedLimit float64
	TimeOverFlowLimit  float64

	// Headroom between the configured limit and the observed P99; nil when
	// the corresponding limit is unset.
	SpeedHeadroomMMPerS *float64
	FlowHeadroomMM3PerS *float64

	// Time-weighted distributions; empty unless the aggregator was built
	// with a positive bin count.
	SpeedHist Histogram
	FlowHist  Histogram
}

// GroupSummary is a Summary with its position in the group sequence.
type GroupSummary struct {
	Summary

	// Ordinal is the finalization order, starting at 0.
	Ordinal int
	// ZMM is the group's representative Z: the marker-mode hint when one was
	// seen, otherwise the Z of the group's last event.
	ZMM float64
	// LayerHeightMM is the representative-Z step from the previous group;
	// for the first group it is the distance from Z=0.
	LayerHeightMM float64
	// CumulativeTimeS is the total print time through this group.
	CumulativeTimeS float64
}

// Result is everything one profiler run produced.
type Result struct {
	Groups     []GroupSummary
	Categories map[string]Summary
	Totals     Summary

	Lines    int64
	Counters gcode.Counters

	// Events is the full ordered event stream; nil unless the run was
	// configured to keep per-event detail.
	Events []gcode.MotionEvent
}
