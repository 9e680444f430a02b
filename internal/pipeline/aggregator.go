package pipeline

import (
	"github.com/gcodelens/gcodelens/internal/gcode"
	"github.com/gcodelens/gcodelens/internal/stats"
)

// Short-fast segment thresholds: extruding moves below this length at above
// this speed stress the motion system (ringing / pressure-advance proxy).
const (
	shortSegmentMM  = 0.6
	fastSpeedMMPerS = 50.0
)

// AggregatorOptions tunes what a bucket computes at finalization beyond the
// base sums and percentiles.
type AggregatorOptions struct {
	// Limits enable the time-over-limit fractions and P99 headrooms.
	MaxSpeedMMPerS *float64
	MaxFlowMM3PerS *float64

	// HistBins enables time-weighted speed/flow histograms when >= 1.
	HistBins int
}

// Aggregator accumulates motion events into running sums and
// duration-weighted samples for one bucket (a group, a category, or the
// whole print), then folds them into an immutable Summary. Not safe for
// concurrent use; the fold is single-threaded.
type Aggregator struct {
	opts AggregatorOptions

	events          int64
	extrudingEvents int64
	timeS           float64
	extrudingTimeS  float64
	travelTimeS     float64

	distanceMM       float64
	travelDistanceMM float64
	extrusionMM      float64
	retractionMM     float64
	retracts         int64
	shortFast        int64

	// volumeMM3 integrates flow over time, so mean flow divides by the
	// bucket's whole duration rather than just the extruding part.
	volumeMM3 float64

	speedSamples []stats.WeightedSample
	flowSamples  []stats.WeightedSample
	fanSamples   []stats.WeightedSample

	hotendC  *float64
	bedC     *float64
	chamberC *float64
	lastZ    float64

	finalized bool
	summary   Summary
}

// NewAggregator creates an empty bucket.
func NewAggregator(opts AggregatorOptions) *Aggregator {
	return &Aggregator{opts: opts}
}

// Empty reports whether the bucket has accumulated any events.
func (a *Aggregator) Empty() bool { return a.events == 0 }

// Accumulate folds one event into the bucket. Calling it after Finalize is a
// programming error and panics.
func (a *Aggregator) Accumulate(ev *gcode.MotionEvent) {
	if a.finalized {
		panic("pipeline: Accumulate called after Finalize")
	}

	a.events++
	a.timeS += ev.DurationS
	a.distanceMM += ev.DistanceMM
	a.extrusionMM += ev.ExtrusionMM
	a.volumeMM3 += ev.FlowMM3PerS * ev.DurationS

	if ev.RetractionMM > 0 {
		a.retractionMM += ev.RetractionMM
		a.retracts++
	}

	if ev.IsExtruding {
		a.extrudingEvents++
		a.extrudingTimeS += ev.DurationS
		if ev.DistanceMM > 0 && ev.DistanceMM < shortSegmentMM && ev.SpeedMMPerS > fastSpeedMMPerS {
			a.shortFast++
		}
	} else if ev.Travel() {
		a.travelTimeS += ev.DurationS
		a.travelDistanceMM += ev.DistanceMM
	}

	if ev.DistanceMM > 0 && ev.SpeedMMPerS > 0 {
		a.speedSamples = append(a.speedSamples, stats.WeightedSample{Value: ev.SpeedMMPerS, Weight: ev.DurationS})
	}
	if ev.FlowMM3PerS > 0 {
		a.flowSamples = append(a.flowSamples, stats.WeightedSample{Value: ev.FlowMM3PerS, Weight: ev.DurationS})
	}
	if ev.FanPct != nil {
		a.fanSamples = append(a.fanSamples, stats.WeightedSample{Value: *ev.FanPct, Weight: ev.DurationS})
	}

	if ev.HotendC != nil {
		a.hotendC = ev.HotendC
	}
	if ev.BedC != nil {
		a.bedC = ev.BedC
	}
	if ev.ChamberC != nil {
		a.chamberC = ev.ChamberC
	}
	a.lastZ = ev.Z
}

// Finalize computes the bucket's Summary. Idempotent: the first call computes
// and caches, later calls return the cached value. The sample slices are
// released once the closed-form outputs exist.
func (a *Aggregator) Finalize() Summary {
	if a.finalized {
		return a.summary
	}

	s := Summary{
		Events:            a.events,
		ExtrudingEvents:   a.extrudingEvents,
		TimeS:             a.timeS,
		ExtrudingTimeS:    a.extrudingTimeS,
		TravelTimeS:       a.travelTimeS,
		DistanceMM:        a.distanceMM,
		TravelDistanceMM:  a.travelDistanceMM,
		ExtrusionMM:       a.extrusionMM,
		RetractionMM:      a.retractionMM,
		Retracts:          a.retracts,
		ShortFastSegments: a.shortFast,
		HotendC:           a.hotendC,
		BedC:              a.bedC,
		ChamberC:          a.chamberC,
		LastZ:             a.lastZ,
	}

	if a.timeS > 0 {
		s.MeanSpeedMMPerS = a.distanceMM / a.timeS
		s.MeanFlowMM3PerS = a.volumeMM3 / a.timeS
	}

	s.PeakSpeedMMPerS = stats.Peak(a.speedSamples)
	s.P95SpeedMMPerS = stats.Percentile(a.speedSamples, 95)
	s.P99SpeedMMPerS = stats.Percentile(a.speedSamples, 99)
	s.PeakFlowMM3PerS = stats.Peak(a.flowSamples)
	s.P95FlowMM3PerS = stats.Percentile(a.flowSamples, 95)
	s.P99FlowMM3PerS = stats.Percentile(a.flowSamples, 99)
	s.MeanFanPct = stats.WeightedMean(a.fanSamples)

	if lim := a.opts.MaxSpeedMMPerS; lim != nil && len(a.speedSamples) > 0 {
		if a.timeS > 0 {
			over := stats.FractionOver(a.speedSamples, *lim) * stats.TotalWeight(a.speedSamples)
			s.TimeOverSpeedLimit = over / a.timeS
		}
		headroom := *lim - s.P99SpeedMMPerS
		s.SpeedHeadroomMMPerS = &headroom
	}
	if lim := a.opts.MaxFlowMM3PerS; lim != nil && len(a.flowSamples) > 0 {
		if a.timeS > 0 {
			over := stats.FractionOver(a.flowSamples, *lim) * stats.TotalWeight(a.flowSamples)
			s.TimeOverFlowLimit = over / a.timeS
		}
		headroom := *lim - s.P99FlowMM3PerS
		s.FlowHeadroomMM3PerS = &headroom
	}

	if a.opts.HistBins >= 1 {
		s.SpeedHist = histogramOf(a.speedSamples, a.opts.HistBins)
		s.FlowHist = histogramOf(a.flowSamples, a.opts.HistBins)
	}

	a.summary = s
	a.finalized = true
	a.speedSamples = nil
	a.flowSamples = nil
	a.fanSamples = nil
	return a.summary
}

func histogramOf(samples []stats.WeightedSample, bins int) Histogram {
	if len(samples) == 0 {
		return Histogram{}
	}
	edges := stats.MakeBins(stats.Percentile(samples, 0), stats.Peak(samples), bins)
	return Histogram{Bins: edges, Weights: stats.WeightedCounts(samples, edges)}
}
