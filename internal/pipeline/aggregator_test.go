package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcodelens/gcodelens/internal/gcode"
)

func fptr(v float64) *float64 { return &v }

// Four events with easy numbers: two extruding moves, one travel, one
// standing retraction.
func testEvents() []*gcode.MotionEvent {
	return []*gcode.MotionEvent{
		{
			X: 10, DistanceMM: 10, ExtrusionMM: 1, IsExtruding: true,
			SpeedMMPerS: 20, FeedrateMMPerMin: 1200, DurationS: 0.5, FlowMM3PerS: 4,
			FanPct: fptr(100), HotendC: fptr(210), Category: "Perimeter",
		},
		{
			X: 40, DistanceMM: 30, ExtrusionMM: 2, IsExtruding: true,
			SpeedMMPerS: 60, FeedrateMMPerMin: 3600, DurationS: 0.5, FlowMM3PerS: 8,
			FanPct: fptr(50), Category: "Perimeter",
		},
		{
			X: 140, DistanceMM: 100,
			SpeedMMPerS: 200, FeedrateMMPerMin: 12000, DurationS: 0.5,
			Category: "Perimeter",
		},
		{
			RetractionMM: 2, Category: "Perimeter", Z: 0.2,
		},
	}
}

func accumulateAll(a *Aggregator, evs []*gcode.MotionEvent) {
	for _, ev := range evs {
		a.Accumulate(ev)
	}
}

func TestAggregatorSums(t *testing.T) {
	t.Parallel()

	a := NewAggregator(AggregatorOptions{})
	assert.True(t, a.Empty())
	accumulateAll(a, testEvents())
	assert.False(t, a.Empty())

	s := a.Finalize()
	assert.Equal(t, int64(4), s.Events)
	assert.Equal(t, int64(2), s.ExtrudingEvents)
	assert.InDelta(t, 1.5, s.TimeS, 1e-12)
	assert.InDelta(t, 1.0, s.ExtrudingTimeS, 1e-12)
	assert.InDelta(t, 0.5, s.TravelTimeS, 1e-12)
	assert.InDelta(t, 140, s.DistanceMM, 1e-12)
	assert.InDelta(t, 100, s.TravelDistanceMM, 1e-12)
	assert.InDelta(t, 3, s.ExtrusionMM, 1e-12)
	assert.InDelta(t, 2, s.RetractionMM, 1e-12)
	assert.Equal(t, int64(1), s.Retracts)
	assert.Equal(t, int64(0), s.ShortFastSegments)
	assert.InDelta(t, 0.2, s.LastZ, 1e-12)
}

func TestAggregatorMovingRetractionIsNotTravel(t *testing.T) {
	t.Parallel()

	a := NewAggregator(AggregatorOptions{})
	// A wipe move retracting while it displaces.
	a.Accumulate(&gcode.MotionEvent{
		DistanceMM: 2, RetractionMM: 1.5,
		SpeedMMPerS: 40, DurationS: 0.05,
	})

	s := a.Finalize()
	assert.Zero(t, s.TravelTimeS)
	assert.Zero(t, s.TravelDistanceMM)
	assert.InDelta(t, 2, s.DistanceMM, 1e-12)
	assert.InDelta(t, 1.5, s.RetractionMM, 1e-12)
	assert.Equal(t, int64(1), s.Retracts)
}

func TestAggregatorMeansAndPercentiles(t *testing.T) {
	t.Parallel()

	a := NewAggregator(AggregatorOptions{})
	accumulateAll(a, testEvents())
	s := a.Finalize()

	// Mean speed is total distance over total time, so travel drags it up
	// and the standing retraction adds nothing.
	assert.InDelta(t, 140.0/1.5, s.MeanSpeedMMPerS, 1e-9)
	// Mean flow integrates flow over the whole bucket, travel included.
	assert.InDelta(t, (4*0.5+8*0.5)/1.5, s.MeanFlowMM3PerS, 1e-9)

	assert.InDelta(t, 200, s.PeakSpeedMMPerS, 1e-9)
	assert.InDelta(t, 179, s.P95SpeedMMPerS, 1e-9)
	assert.InDelta(t, 8, s.PeakFlowMM3PerS, 1e-9)
	assert.InDelta(t, 7.6, s.P95FlowMM3PerS, 1e-9)

	// Fan runs 100% then 50% for equal durations.
	assert.InDelta(t, 75, s.MeanFanPct, 1e-9)

	require.NotNil(t, s.HotendC)
	assert.Equal(t, 210.0, *s.HotendC)
	assert.Nil(t, s.BedC)
}

func TestAggregatorShortFastSegments(t *testing.T) {
	t.Parallel()

	a := NewAggregator(AggregatorOptions{})
	a.Accumulate(&gcode.MotionEvent{
		DistanceMM: 0.5, ExtrusionMM: 0.01, IsExtruding: true,
		SpeedMMPerS: 80, DurationS: 0.00625,
	})
	// Long enough, fast enough: not short.
	a.Accumulate(&gcode.MotionEvent{
		DistanceMM: 5, ExtrusionMM: 0.1, IsExtruding: true,
		SpeedMMPerS: 80, DurationS: 0.0625,
	})
	// Short but slow.
	a.Accumulate(&gcode.MotionEvent{
		DistanceMM: 0.5, ExtrusionMM: 0.01, IsExtruding: true,
		SpeedMMPerS: 30, DurationS: 0.5 / 30,
	})
	// Short and fast but not extruding.
	a.Accumulate(&gcode.MotionEvent{
		DistanceMM: 0.5, SpeedMMPerS: 80, DurationS: 0.00625,
	})

	s := a.Finalize()
	assert.Equal(t, int64(1), s.ShortFastSegments)
}

func TestAggregatorLimits(t *testing.T) {
	t.Parallel()

	a := NewAggregator(AggregatorOptions{
		MaxSpeedMMPerS: fptr(100),
		MaxFlowMM3PerS: fptr(6),
	})
	accumulateAll(a, testEvents())
	s := a.Finalize()

	// Only the 200 mm/s travel exceeds 100 mm/s: 0.5 s of 1.5 s total.
	assert.InDelta(t, 0.5/1.5, s.TimeOverSpeedLimit, 1e-9)
	assert.InDelta(t, 0.5/1.5, s.TimeOverFlowLimit, 1e-9)

	require.NotNil(t, s.SpeedHeadroomMMPerS)
	assert.InDelta(t, 100-195.8, *s.SpeedHeadroomMMPerS, 1e-9)
	require.NotNil(t, s.FlowHeadroomMM3PerS)
	assert.InDelta(t, 6-7.92, *s.FlowHeadroomMM3PerS, 1e-9)
}

func TestAggregatorLimitsUnset(t *testing.T) {
	t.Parallel()

	a := NewAggregator(AggregatorOptions{})
	accumulateAll(a, testEvents())
	s := a.Finalize()

	assert.Zero(t, s.TimeOverSpeedLimit)
	assert.Zero(t, s.TimeOverFlowLimit)
	assert.Nil(t, s.SpeedHeadroomMMPerS)
	assert.Nil(t, s.FlowHeadroomMM3PerS)
}

func TestAggregatorHistograms(t *testing.T) {
	t.Parallel()

	a := NewAggregator(AggregatorOptions{HistBins: 2})
	accumulateAll(a, testEvents())
	s := a.Finalize()

	// Speeds 20 and 60 land in [20,110), 200 in [110,200].
	require.Len(t, s.SpeedHist.Bins, 2)
	assert.InDelta(t, 20, s.SpeedHist.Bins[0].Lo, 1e-9)
	assert.InDelta(t, 200, s.SpeedHist.Bins[1].Hi, 1e-9)
	require.Len(t, s.SpeedHist.Weights, 2)
	assert.InDelta(t, 1.0, s.SpeedHist.Weights[0], 1e-9)
	assert.InDelta(t, 0.5, s.SpeedHist.Weights[1], 1e-9)

	require.Len(t, s.FlowHist.Weights, 2)
	assert.InDelta(t, 0.5, s.FlowHist.Weights[0], 1e-9)
	assert.InDelta(t, 0.5, s.FlowHist.Weights[1], 1e-9)
}

func TestAggregatorFinalizeIdempotent(t *testing.T) {
	t.Parallel()

	a := NewAggregator(AggregatorOptions{HistBins: 4})
	accumulateAll(a, testEvents())

	first := a.Finalize()
	second := a.Finalize()
	assert.Equal(t, first, second)
}

func TestAggregatorAccumulateAfterFinalizePanics(t *testing.T) {
	t.Parallel()

	a := NewAggregator(AggregatorOptions{})
	a.Accumulate(testEvents()[0])
	a.Finalize()

	assert.Panics(t, func() {
		a.Accumulate(testEvents()[1])
	})
}

func TestAggregatorEmptyFinalize(t *testing.T) {
	t.Parallel()

	a := NewAggregator(AggregatorOptions{
		MaxSpeedMMPerS: fptr(100),
		HistBins:       4,
	})
	s := a.Finalize()

	assert.Zero(t, s.Events)
	assert.Zero(t, s.TimeS)
	assert.Zero(t, s.MeanSpeedMMPerS)
	assert.Zero(t, s.PeakSpeedMMPerS)
	assert.Nil(t, s.SpeedHeadroomMMPerS)
	assert.Empty(t, s.SpeedHist.Bins)
}
