package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

// Output file names are fixed; the configurable part is the directory.
const (
	LayersCSVName     = "layers.csv"
	CategoriesCSVName = "categories.csv"
	EventsCSVName     = "events.csv"
	CompareCSVName    = "compare.csv"
	SummaryJSONName   = "summary.json"
	DashboardHTMLName = "dashboard.html"
	ManifestJSONName  = "manifest.json"
)

var layersHeader = []string{
	"layer", "z_mm", "layer_height_mm", "events", "time_s", "cumulative_time_s",
	"distance_mm", "travel_distance_mm", "extrusion_mm", "retraction_mm", "retracts",
	"travel_time_s", "extruding_time_s",
	"mean_speed_mm_s", "peak_speed_mm_s", "p95_speed_mm_s", "p99_speed_mm_s",
	"mean_flow_mm3_s", "peak_flow_mm3_s", "p95_flow_mm3_s", "p99_flow_mm3_s",
	"mean_fan_pct", "hotend_c", "bed_c", "chamber_c",
	"time_over_speed_pct", "time_over_flow_pct",
	"speed_headroom_mm_s", "flow_headroom_mm3_s",
	"short_fast_segments",
}

var categoriesHeader = []string{
	"category", "events", "time_s", "time_share_pct",
	"distance_mm", "extrusion_mm",
	"filament_m", "filament_cm3", "filament_g",
	"mean_speed_mm_s", "peak_speed_mm_s", "p95_speed_mm_s", "p99_speed_mm_s",
	"mean_flow_mm3_s", "peak_flow_mm3_s", "p95_flow_mm3_s", "p99_flow_mm3_s",
	"time_over_speed_pct", "time_over_flow_pct",
}

var eventsHeader = []string{
	"index", "category", "x_mm", "y_mm", "z_mm",
	"distance_mm", "extrusion_mm", "retraction_mm",
	"speed_mm_s", "duration_s", "flow_mm3_s",
}

func (r *Report) writeLayersCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(layersHeader); err != nil {
		return err
	}
	for _, g := range r.Groups {
		rec := []string{
			strconv.Itoa(g.Layer),
			csvFloat(g.ZMM),
			csvFloat(g.LayerHeightMM),
			csvInt(g.Events),
			csvFloat(g.TimeS),
			csvFloat(g.CumulativeTimeS),
			csvFloat(g.DistanceMM),
			csvFloat(g.TravelDistanceMM),
			csvFloat(g.ExtrusionMM),
			csvFloat(g.RetractionMM),
			csvInt(g.Retracts),
			csvFloat(g.TravelTimeS),
			csvFloat(g.ExtrudingTimeS),
			csvFloat(g.MeanSpeedMMPerS),
			csvFloat(g.PeakSpeedMMPerS),
			csvFloat(g.P95SpeedMMPerS),
			csvFloat(g.P99SpeedMMPerS),
			csvFloat(g.MeanFlowMM3PerS),
			csvFloat(g.PeakFlowMM3PerS),
			csvFloat(g.P95FlowMM3PerS),
			csvFloat(g.P99FlowMM3PerS),
			csvFloat(g.MeanFanPct),
			csvOptFloat(g.HotendC),
			csvOptFloat(g.BedC),
			csvOptFloat(g.ChamberC),
			csvFloat(g.TimeOverSpeedPct),
			csvFloat(g.TimeOverFlowPct),
			csvOptFloat(g.SpeedHeadroomMMPerS),
			csvOptFloat(g.FlowHeadroomMM3PerS),
			csvInt(g.ShortFastSegments),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (r *Report) writeCategoriesCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(categoriesHeader); err != nil {
		return err
	}
	for _, c := range r.Categories {
		rec := []string{
			c.Category,
			csvInt(c.Events),
			csvFloat(c.TimeS),
			csvFloat(c.TimeSharePct),
			csvFloat(c.DistanceMM),
			csvFloat(c.ExtrusionMM),
			csvFloat(c.FilamentM),
			csvFloat(c.FilamentCM3),
			csvFloat(c.FilamentG),
			csvFloat(c.MeanSpeedMMPerS),
			csvFloat(c.PeakSpeedMMPerS),
			csvFloat(c.P95SpeedMMPerS),
			csvFloat(c.P99SpeedMMPerS),
			csvFloat(c.MeanFlowMM3PerS),
			csvFloat(c.PeakFlowMM3PerS),
			csvFloat(c.P95FlowMM3PerS),
			csvFloat(c.P99FlowMM3PerS),
			csvFloat(c.TimeOverSpeedPct),
			csvFloat(c.TimeOverFlowPct),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (r *Report) writeEventsCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(eventsHeader); err != nil {
		return err
	}
	for _, ev := range r.Events {
		rec := []string{
			csvInt(ev.Index),
			ev.Category,
			csvFloat(ev.XMM),
			csvFloat(ev.YMM),
			csvFloat(ev.ZMM),
			csvFloat(ev.DistanceMM),
			csvFloat(ev.ExtrusionMM),
			csvFloat(ev.RetractionMM),
			csvFloat(ev.SpeedMMPerS),
			csvFloat(ev.DurationS),
			csvFloat(ev.FlowMM3PerS),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// csvFloat renders the exact value rather than a rounded display form so
// downstream tooling never loses precision to the report layer.
func csvFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// csvOptFloat renders nil as an empty cell.
func csvOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return csvFloat(*v)
}

func csvInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
