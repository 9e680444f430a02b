package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/gcodelens/gcodelens/internal/version"
)

// SummaryDocument is the schema of summary.json: the whole report plus
// enough provenance to interpret it standalone.
type SummaryDocument struct {
	Tool        string    `json:"tool"`
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	Input       string    `json:"input,omitempty"`

	Profile ProfileInfo `json:"profile"`
	Limits  LimitsInfo  `json:"limits"`

	Totals     TotalsRow     `json:"totals"`
	Layers     []GroupRow    `json:"layers"`
	Categories []CategoryRow `json:"categories"`

	TopSlowLayers []GroupRow `json:"top_slow_layers,omitempty"`
	TopFlowEvents []EventRow `json:"top_flow_events,omitempty"`

	SpeedHist       []HistogramBin `json:"speed_histogram,omitempty"`
	FlowHist        []HistogramBin `json:"flow_histogram,omitempty"`
	LayerHeightHist []HistogramBin `json:"layer_height_histogram,omitempty"`

	Comparison *Comparison `json:"comparison,omitempty"`
}

func (r *Report) writeSummaryJSON(w io.Writer, input string, at time.Time, cmp *Comparison) error {
	doc := SummaryDocument{
		Tool:        toolName,
		Version:     version.Version,
		GeneratedAt: at.UTC(),
		Input:       input,

		Profile: r.Profile,
		Limits:  r.Limits,

		Totals:     r.Totals,
		Layers:     r.Groups,
		Categories: r.Categories,

		TopSlowLayers: r.TopSlowGroups,
		TopFlowEvents: r.TopFlowEvents,

		SpeedHist:       r.SpeedHist,
		FlowHist:        r.FlowHist,
		LayerHeightHist: r.LayerHeightHist,

		Comparison: cmp,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(&doc)
}
