// Package report condenses profiler results into presentation rows and
// renders them as CSV tables, a JSON summary, an HTML dashboard, and a
// manifest describing the run.
package report

import (
	"sort"

	"github.com/gcodelens/gcodelens/internal/config"
	"github.com/gcodelens/gcodelens/internal/gcode"
	"github.com/gcodelens/gcodelens/internal/pipeline"
	"github.com/gcodelens/gcodelens/internal/stats"
)

// peakSpikeFactor decides when a raw peak looks like single-segment noise:
// a peak above this multiple of P99 is displayed as P99 instead.
const peakSpikeFactor = 1.5

// ProfileInfo echoes the interpretation settings a report was built with.
type ProfileInfo struct {
	FilamentDiameterMM  float64 `json:"filament_diameter_mm"`
	FilamentDensityGCM3 float64 `json:"filament_density_g_cm3"`
	BoundaryStrategy    string  `json:"boundary_strategy"`
}

// LimitsInfo echoes the configured machine limits; nil fields were unset.
type LimitsInfo struct {
	MaxSpeedMMPerS   *float64 `json:"max_speed_mm_s,omitempty"`
	MaxFlowMM3PerS   *float64 `json:"max_flow_mm3_s,omitempty"`
	MinLayerHeightMM *float64 `json:"min_layer_height_mm,omitempty"`
	MaxLayerHeightMM *float64 `json:"max_layer_height_mm,omitempty"`
}

// GroupRow is one line of the per-group table.
type GroupRow struct {
	Layer           int     `json:"layer"`
	ZMM             float64 `json:"z_mm"`
	LayerHeightMM   float64 `json:"layer_height_mm"`
	Events          int64   `json:"events"`
	TimeS           float64 `json:"time_s"`
	CumulativeTimeS float64 `json:"cumulative_time_s"`

	DistanceMM       float64 `json:"distance_mm"`
	TravelDistanceMM float64 `json:"travel_distance_mm"`
	ExtrusionMM      float64 `json:"extrusion_mm"`
	RetractionMM     float64 `json:"retraction_mm"`
	Retracts         int64   `json:"retracts"`

	TravelTimeS    float64 `json:"travel_time_s"`
	ExtrudingTimeS float64 `json:"extruding_time_s"`

	MeanSpeedMMPerS float64 `json:"mean_speed_mm_s"`
	PeakSpeedMMPerS float64 `json:"peak_speed_mm_s"`
	P95SpeedMMPerS  float64 `json:"p95_speed_mm_s"`
	P99SpeedMMPerS  float64 `json:"p99_speed_mm_s"`

	MeanFlowMM3PerS float64 `json:"mean_flow_mm3_s"`
	PeakFlowMM3PerS float64 `json:"peak_flow_mm3_s"`
	P95FlowMM3PerS  float64 `json:"p95_flow_mm3_s"`
	P99FlowMM3PerS  float64 `json:"p99_flow_mm3_s"`

	MeanFanPct float64  `json:"mean_fan_pct"`
	HotendC    *float64 `json:"hotend_c,omitempty"`
	BedC       *float64 `json:"bed_c,omitempty"`
	ChamberC   *float64 `json:"chamber_c,omitempty"`

	TimeOverSpeedPct    float64  `json:"time_over_speed_pct"`
	TimeOverFlowPct     float64  `json:"time_over_flow_pct"`
	SpeedHeadroomMMPerS *float64 `json:"speed_headroom_mm_s,omitempty"`
	FlowHeadroomMM3PerS *float64 `json:"flow_headroom_mm3_s,omitempty"`

	ShortFastSegments int64 `json:"short_fast_segments"`
}

// CategoryRow is one line of the per-category table. Peak columns are
// spike-suppressed; the uncapped values remain in the profiler summaries.
type CategoryRow struct {
	Category string `json:"category"`
	Events   int64  `json:"events"`

	TimeS        float64 `json:"time_s"`
	TimeSharePct float64 `json:"time_share_pct"`

	DistanceMM  float64 `json:"distance_mm"`
	ExtrusionMM float64 `json:"extrusion_mm"`

	FilamentM   float64 `json:"filament_m"`
	FilamentCM3 float64 `json:"filament_cm3"`
	FilamentG   float64 `json:"filament_g"`

	MeanSpeedMMPerS float64 `json:"mean_speed_mm_s"`
	PeakSpeedMMPerS float64 `json:"peak_speed_mm_s"`
	P95SpeedMMPerS  float64 `json:"p95_speed_mm_s"`
	P99SpeedMMPerS  float64 `json:"p99_speed_mm_s"`

	MeanFlowMM3PerS float64 `json:"mean_flow_mm3_s"`
	PeakFlowMM3PerS float64 `json:"peak_flow_mm3_s"`
	P95FlowMM3PerS  float64 `json:"p95_flow_mm3_s"`
	P99FlowMM3PerS  float64 `json:"p99_flow_mm3_s"`

	TimeOverSpeedPct float64 `json:"time_over_speed_pct"`
	TimeOverFlowPct  float64 `json:"time_over_flow_pct"`
}

// TotalsRow aggregates the whole run, including filament usage and the
// recoverable-defect counters.
type TotalsRow struct {
	Lines  int64 `json:"lines"`
	Events int64 `json:"events"`

	TimeS          float64 `json:"time_s"`
	ExtrudingTimeS float64 `json:"extruding_time_s"`
	TravelTimeS    float64 `json:"travel_time_s"`

	DistanceMM       float64 `json:"distance_mm"`
	TravelDistanceMM float64 `json:"travel_distance_mm"`
	ExtrusionMM      float64 `json:"extrusion_mm"`
	RetractionMM     float64 `json:"retraction_mm"`
	Retracts         int64   `json:"retracts"`

	FilamentM   float64 `json:"filament_m"`
	FilamentCM3 float64 `json:"filament_cm3"`
	FilamentG   float64 `json:"filament_g"`

	MeanSpeedMMPerS float64 `json:"mean_speed_mm_s"`
	PeakSpeedMMPerS float64 `json:"peak_speed_mm_s"`
	P95SpeedMMPerS  float64 `json:"p95_speed_mm_s"`
	P99SpeedMMPerS  float64 `json:"p99_speed_mm_s"`

	MeanFlowMM3PerS float64 `json:"mean_flow_mm3_s"`
	PeakFlowMM3PerS float64 `json:"peak_flow_mm3_s"`
	P95FlowMM3PerS  float64 `json:"p95_flow_mm3_s"`
	P99FlowMM3PerS  float64 `json:"p99_flow_mm3_s"`

	MeanFanPct float64 `json:"mean_fan_pct"`

	TimeOverSpeedPct    float64  `json:"time_over_speed_pct"`
	TimeOverFlowPct     float64  `json:"time_over_flow_pct"`
	SpeedHeadroomMMPerS *float64 `json:"speed_headroom_mm_s,omitempty"`
	FlowHeadroomMM3PerS *float64 `json:"flow_headroom_mm3_s,omitempty"`

	ShortFastSegments int64 `json:"short_fast_segments"`

	MalformedFields      int64 `json:"malformed_fields"`
	UnrecognizedCommands int64 `json:"unrecognized_commands"`
	ZDecreases           int64 `json:"z_decreases"`
}

// EventRow is one motion event in the per-event outputs. Index is the
// event's position in the stream, starting at 0.
type EventRow struct {
	Index        int64   `json:"index"`
	Category     string  `json:"category"`
	XMM          float64 `json:"x_mm"`
	YMM          float64 `json:"y_mm"`
	ZMM          float64 `json:"z_mm"`
	DistanceMM   float64 `json:"distance_mm"`
	ExtrusionMM  float64 `json:"extrusion_mm"`
	RetractionMM float64 `json:"retraction_mm"`
	SpeedMMPerS  float64 `json:"speed_mm_s"`
	DurationS    float64 `json:"duration_s"`
	FlowMM3PerS  float64 `json:"flow_mm3_s"`
}

// HistogramBin is one interval of a distribution. Weight is seconds of
// print time for the speed and flow histograms and a plain group count for
// the layer-height histogram.
type HistogramBin struct {
	Lo     float64 `json:"lo"`
	Hi     float64 `json:"hi"`
	Weight float64 `json:"weight"`
}

// Report is the condensed, presentation-ready view of one profiler run.
// Every rendering target draws from the same rows, so the CSV tables, the
// JSON summary, and the dashboard can never disagree.
type Report struct {
	Profile ProfileInfo
	Limits  LimitsInfo

	Groups     []GroupRow
	Categories []CategoryRow
	Totals     TotalsRow

	// TopSlowGroups holds the topN groups by time, longest first.
	TopSlowGroups []GroupRow

	// Events holds every kept motion event in stream order; nil when the
	// run did not keep per-event detail.
	Events []EventRow
	// TopFlowEvents holds the topN kept events by volumetric flow.
	TopFlowEvents []EventRow

	SpeedHist       []HistogramBin
	FlowHist        []HistogramBin
	LayerHeightHist []HistogramBin
}

// Build condenses a profiler result into report rows using the effective
// configuration for filament geometry, limits, and table sizing.
func Build(res *pipeline.Result, cfg *config.Config) *Report {
	area := gcode.FilamentAreaMM2(cfg.Profile.FilamentDiameterMM)
	density := cfg.Profile.FilamentDensityGCM3

	rep := &Report{
		Profile: ProfileInfo{
			FilamentDiameterMM:  cfg.Profile.FilamentDiameterMM,
			FilamentDensityGCM3: cfg.Profile.FilamentDensityGCM3,
			BoundaryStrategy:    cfg.Profile.BoundaryStrategy,
		},
		Limits: LimitsInfo{
			MaxSpeedMMPerS:   cfg.Limits.MaxSpeedMMPerS,
			MaxFlowMM3PerS:   cfg.Limits.MaxFlowMM3PerS,
			MinLayerHeightMM: cfg.Limits.MinLayerHeightMM,
			MaxLayerHeightMM: cfg.Limits.MaxLayerHeightMM,
		},
	}

	rep.Groups = make([]GroupRow, 0, len(res.Groups))
	for _, g := range res.Groups {
		rep.Groups = append(rep.Groups, groupRow(g))
	}
	rep.Categories = categoryRows(res, area, density)
	rep.Totals = totalsRow(res, area, density)
	rep.TopSlowGroups = topSlowGroups(rep.Groups, cfg.Report.TopN)

	if res.Events != nil {
		rep.Events = eventRows(res.Events)
		rep.TopFlowEvents = topFlowEvents(rep.Events, cfg.Report.TopN)
	}

	rep.SpeedHist = histogramBins(res.Totals.SpeedHist)
	rep.FlowHist = histogramBins(res.Totals.FlowHist)
	rep.LayerHeightHist = layerHeightHist(res.Groups, cfg.Report.Bins)

	return rep
}

func groupRow(g pipeline.GroupSummary) GroupRow {
	return GroupRow{
		Layer:           g.Ordinal,
		ZMM:             g.ZMM,
		LayerHeightMM:   g.LayerHeightMM,
		Events:          g.Events,
		TimeS:           g.TimeS,
		CumulativeTimeS: g.CumulativeTimeS,

		DistanceMM:       g.DistanceMM,
		TravelDistanceMM: g.TravelDistanceMM,
		ExtrusionMM:      g.ExtrusionMM,
		RetractionMM:     g.RetractionMM,
		Retracts:         g.Retracts,

		TravelTimeS:    g.TravelTimeS,
		ExtrudingTimeS: g.ExtrudingTimeS,

		MeanSpeedMMPerS: g.MeanSpeedMMPerS,
		PeakSpeedMMPerS: g.PeakSpeedMMPerS,
		P95SpeedMMPerS:  g.P95SpeedMMPerS,
		P99SpeedMMPerS:  g.P99SpeedMMPerS,

		MeanFlowMM3PerS: g.MeanFlowMM3PerS,
		PeakFlowMM3PerS: g.PeakFlowMM3PerS,
		P95FlowMM3PerS:  g.P95FlowMM3PerS,
		P99FlowMM3PerS:  g.P99FlowMM3PerS,

		MeanFanPct: g.MeanFanPct,
		HotendC:    g.HotendC,
		BedC:       g.BedC,
		ChamberC:   g.ChamberC,

		TimeOverSpeedPct:    g.TimeOverSpeedLimit * 100,
		TimeOverFlowPct:     g.TimeOverFlowLimit * 100,
		SpeedHeadroomMMPerS: g.SpeedHeadroomMMPerS,
		FlowHeadroomMM3PerS: g.FlowHeadroomMM3PerS,

		ShortFastSegments: g.ShortFastSegments,
	}
}

// categoryRows orders categories by event count, busiest first, with ties
// broken by name so the output is deterministic.
func categoryRows(res *pipeline.Result, area, density float64) []CategoryRow {
	names := make([]string, 0, len(res.Categories))
	for name := range res.Categories {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := res.Categories[names[i]], res.Categories[names[j]]
		if a.Events != b.Events {
			return a.Events > b.Events
		}
		return names[i] < names[j]
	})

	rows := make([]CategoryRow, 0, len(names))
	for _, name := range names {
		s := res.Categories[name]
		volCM3 := s.ExtrusionMM * area / 1000

		row := CategoryRow{
			Category: name,
			Events:   s.Events,

			TimeS: s.TimeS,

			DistanceMM:  s.DistanceMM,
			ExtrusionMM: s.ExtrusionMM,

			FilamentM:   s.ExtrusionMM / 1000,
			FilamentCM3: volCM3,
			FilamentG:   volCM3 * density,

			MeanSpeedMMPerS: s.MeanSpeedMMPerS,
			PeakSpeedMMPerS: suppressSpike(s.PeakSpeedMMPerS, s.P99SpeedMMPerS),
			P95SpeedMMPerS:  s.P95SpeedMMPerS,
			P99SpeedMMPerS:  s.P99SpeedMMPerS,

			MeanFlowMM3PerS: s.MeanFlowMM3PerS,
			PeakFlowMM3PerS: suppressSpike(s.PeakFlowMM3PerS, s.P99FlowMM3PerS),
			P95FlowMM3PerS:  s.P95FlowMM3PerS,
			P99FlowMM3PerS:  s.P99FlowMM3PerS,

			TimeOverSpeedPct: s.TimeOverSpeedLimit * 100,
			TimeOverFlowPct:  s.TimeOverFlowLimit * 100,
		}
		if res.Totals.TimeS > 0 {
			row.TimeSharePct = s.TimeS / res.Totals.TimeS * 100
		}
		rows = append(rows, row)
	}
	return rows
}

func totalsRow(res *pipeline.Result, area, density float64) TotalsRow {
	t := res.Totals
	volCM3 := t.ExtrusionMM * area / 1000

	return TotalsRow{
		Lines:  res.Lines,
		Events: t.Events,

		TimeS:          t.TimeS,
		ExtrudingTimeS: t.ExtrudingTimeS,
		TravelTimeS:    t.TravelTimeS,

		DistanceMM:       t.DistanceMM,
		TravelDistanceMM: t.TravelDistanceMM,
		ExtrusionMM:      t.ExtrusionMM,
		RetractionMM:     t.RetractionMM,
		Retracts:         t.Retracts,

		FilamentM:   t.ExtrusionMM / 1000,
		FilamentCM3: volCM3,
		FilamentG:   volCM3 * density,

		MeanSpeedMMPerS: t.MeanSpeedMMPerS,
		PeakSpeedMMPerS: t.PeakSpeedMMPerS,
		P95SpeedMMPerS:  t.P95SpeedMMPerS,
		P99SpeedMMPerS:  t.P99SpeedMMPerS,

		MeanFlowMM3PerS: t.MeanFlowMM3PerS,
		PeakFlowMM3PerS: t.PeakFlowMM3PerS,
		P95FlowMM3PerS:  t.P95FlowMM3PerS,
		P99FlowMM3PerS:  t.P99FlowMM3PerS,

		MeanFanPct: t.MeanFanPct,

		TimeOverSpeedPct:    t.TimeOverSpeedLimit * 100,
		TimeOverFlowPct:     t.TimeOverFlowLimit * 100,
		SpeedHeadroomMMPerS: t.SpeedHeadroomMMPerS,
		FlowHeadroomMM3PerS: t.FlowHeadroomMM3PerS,

		ShortFastSegments: t.ShortFastSegments,

		MalformedFields:      res.Counters.MalformedFields,
		UnrecognizedCommands: res.Counters.UnrecognizedCommands,
		ZDecreases:           res.Counters.ZDecreases,
	}
}

// suppressSpike displays P99 in place of a raw peak that exceeds
// peakSpikeFactor times P99; such peaks are almost always one noisy
// segment rather than sustained behavior.
func suppressSpike(peak, p99 float64) float64 {
	if p99 > 0 && peak > peakSpikeFactor*p99 {
		return p99
	}
	return peak
}

func topSlowGroups(groups []GroupRow, n int) []GroupRow {
	if n <= 0 || len(groups) == 0 {
		return nil
	}
	top := make([]GroupRow, len(groups))
	copy(top, groups)
	sort.Slice(top, func(i, j int) bool {
		if top[i].TimeS != top[j].TimeS {
			return top[i].TimeS > top[j].TimeS
		}
		return top[i].Layer < top[j].Layer
	})
	if len(top) > n {
		top = top[:n]
	}
	return top
}

func eventRows(events []gcode.MotionEvent) []EventRow {
	rows := make([]EventRow, 0, len(events))
	for i, ev := range events {
		rows = append(rows, EventRow{
			Index:        int64(i),
			Category:     ev.Category,
			XMM:          ev.X,
			YMM:          ev.Y,
			ZMM:          ev.Z,
			DistanceMM:   ev.DistanceMM,
			ExtrusionMM:  ev.ExtrusionMM,
			RetractionMM: ev.RetractionMM,
			SpeedMMPerS:  ev.SpeedMMPerS,
			DurationS:    ev.DurationS,
			FlowMM3PerS:  ev.FlowMM3PerS,
		})
	}
	return rows
}

func topFlowEvents(events []EventRow, n int) []EventRow {
	if n <= 0 {
		return nil
	}
	flowing := make([]EventRow, 0, len(events))
	for _, ev := range events {
		if ev.FlowMM3PerS > 0 {
			flowing = append(flowing, ev)
		}
	}
	if len(flowing) == 0 {
		return nil
	}
	sort.Slice(flowing, func(i, j int) bool {
		if flowing[i].FlowMM3PerS != flowing[j].FlowMM3PerS {
			return flowing[i].FlowMM3PerS > flowing[j].FlowMM3PerS
		}
		return flowing[i].Index < flowing[j].Index
	})
	if len(flowing) > n {
		flowing = flowing[:n]
	}
	return flowing
}

func histogramBins(h pipeline.Histogram) []HistogramBin {
	if len(h.Bins) == 0 {
		return nil
	}
	out := make([]HistogramBin, 0, len(h.Bins))
	for i, b := range h.Bins {
		out = append(out, HistogramBin{Lo: b.Lo, Hi: b.Hi, Weight: h.Weights[i]})
	}
	return out
}

// layerHeightHist bins the positive layer heights across groups. Zero and
// negative heights come from marker runs without Z hints and are skipped.
func layerHeightHist(groups []pipeline.GroupSummary, bins int) []HistogramBin {
	heights := make([]float64, 0, len(groups))
	for _, g := range groups {
		if g.LayerHeightMM > 0 {
			heights = append(heights, g.LayerHeightMM)
		}
	}
	if len(heights) == 0 {
		return nil
	}

	lo, hi := heights[0], heights[0]
	for _, h := range heights[1:] {
		if h < lo {
			lo = h
		}
		if h > hi {
			hi = h
		}
	}

	spec := stats.MakeBins(lo, hi, bins)
	counts := stats.Counts(heights, spec)
	out := make([]HistogramBin, 0, len(spec))
	for i, b := range spec {
		out = append(out, HistogramBin{Lo: b.Lo, Hi: b.Hi, Weight: float64(counts[i])})
	}
	return out
}
