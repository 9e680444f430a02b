package gcode

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBuilder(t *testing.T, cfg BuilderConfig) *Builder {
	t.Helper()
	if cfg.FilamentAreaMM2 == 0 {
		cfg.FilamentAreaMM2 = FilamentAreaMM2(1.75)
	}
	if cfg.ZEpsilonMM == 0 {
		cfg.ZEpsilonMM = 1e-6
	}
	return NewBuilder(cfg, zap.NewNop())
}

func feed(t *testing.T, b *Builder, lines ...string) (events []*MotionEvent, boundaries int) {
	t.Helper()
	for _, line := range lines {
		ev, boundary := b.Apply(Classify(line))
		if boundary {
			boundaries++
		}
		if ev != nil {
			events = append(events, ev)
		}
	}
	return events, boundaries
}

func TestBuilderTwoMoveScenario(t *testing.T) {
	t.Parallel()
	b := newTestBuilder(t, BuilderConfig{})

	events, _ := feed(t, b,
		"G1 X10 Y0 F1200",
		"G1 X10 Y10 F1200",
	)

	require.Len(t, events, 2)
	for _, ev := range events {
		assert.InDelta(t, 10.0, ev.DistanceMM, 1e-9)
		assert.InDelta(t, 0.5, ev.DurationS, 1e-9)
		assert.InDelta(t, 20.0, ev.SpeedMMPerS, 1e-9)
		assert.Zero(t, ev.FlowMM3PerS)
		assert.False(t, ev.IsExtruding)
	}
	assert.Equal(t, 10.0, events[1].X)
	assert.Equal(t, 10.0, events[1].Y)
}

func TestBuilderNoEventWithoutMotionOrExtrusion(t *testing.T) {
	t.Parallel()
	b := newTestBuilder(t, BuilderConfig{})

	events, _ := feed(t, b,
		"G1 F1200",
		"G1 X0 Y0",
		"M104 S210",
		"G28",
	)
	assert.Empty(t, events)
}

func TestBuilderRelativeExtrusionDefault(t *testing.T) {
	t.Parallel()
	area := FilamentAreaMM2(1.75)
	b := newTestBuilder(t, BuilderConfig{FilamentAreaMM2: area})

	events, _ := feed(t, b, "G1 X10 E0.5 F600")

	require.Len(t, events, 1)
	ev := events[0]
	assert.InDelta(t, 0.5, ev.ExtrusionMM, 1e-9)
	assert.True(t, ev.IsExtruding)
	assert.InDelta(t, 1.0, ev.DurationS, 1e-9)
	assert.InDelta(t, 0.5*area, ev.FlowMM3PerS, 1e-9)
}

func TestBuilderAbsoluteExtrusionWithReset(t *testing.T) {
	t.Parallel()
	b := newTestBuilder(t, BuilderConfig{})

	events, _ := feed(t, b,
		"M82",
		"G1 X10 E2 F600",
		"G92 E0",
		"G1 X20 E1.5 F600",
	)

	require.Len(t, events, 2)
	assert.InDelta(t, 2.0, events[0].ExtrusionMM, 1e-9)
	// After G92 E0 the next absolute target measures from zero again.
	assert.InDelta(t, 1.5, events[1].ExtrusionMM, 1e-9)
}

func TestBuilderRetraction(t *testing.T) {
	t.Parallel()
	b := newTestBuilder(t, BuilderConfig{})

	events, _ := feed(t, b, "G1 E-2 F1800")

	require.Len(t, events, 1)
	ev := events[0]
	assert.Zero(t, ev.DistanceMM)
	assert.Zero(t, ev.DurationS)
	assert.Zero(t, ev.ExtrusionMM, "negative delta clamps to zero")
	assert.InDelta(t, 2.0, ev.RetractionMM, 1e-9)
	assert.False(t, ev.IsExtruding)
	assert.Zero(t, ev.FlowMM3PerS)
}

func TestBuilderStickyFeedrate(t *testing.T) {
	t.Parallel()
	b := newTestBuilder(t, BuilderConfig{})

	events, _ := feed(t, b,
		"G1 X10 F1200",
		"G1 X20",
	)

	require.Len(t, events, 2)
	assert.Equal(t, 1200.0, events[1].FeedrateMMPerMin)
	assert.InDelta(t, 0.5, events[1].DurationS, 1e-9)
}

func TestBuilderMoveBeforeFeedrateHasZeroDuration(t *testing.T) {
	t.Parallel()
	b := newTestBuilder(t, BuilderConfig{})

	events, _ := feed(t, b, "G1 X10")

	require.Len(t, events, 1)
	assert.Equal(t, 10.0, events[0].DistanceMM)
	assert.Zero(t, events[0].DurationS)
	assert.Zero(t, events[0].SpeedMMPerS)
}

func TestBuilderSetpointSnapshots(t *testing.T) {
	t.Parallel()
	b := newTestBuilder(t, BuilderConfig{})

	events, _ := feed(t, b,
		"G1 X1 F600",
		"M104 S200",
		"M140 S60",
		"M106 S255",
		"G1 X2",
		"M104 S220",
		"M107",
		"G1 X3",
	)

	require.Len(t, events, 3)

	first := events[0]
	assert.Nil(t, first.HotendC, "setpoints unknown before first command")
	assert.Nil(t, first.BedC)
	assert.Nil(t, first.FanPct)

	second := events[1]
	require.NotNil(t, second.HotendC)
	assert.Equal(t, 200.0, *second.HotendC)
	require.NotNil(t, second.BedC)
	assert.Equal(t, 60.0, *second.BedC)
	require.NotNil(t, second.FanPct)
	assert.InDelta(t, 100.0, *second.FanPct, 1e-9)

	third := events[2]
	require.NotNil(t, third.HotendC)
	assert.Equal(t, 220.0, *third.HotendC)
	require.NotNil(t, third.FanPct)
	assert.Zero(t, *third.FanPct)

	// Later updates must not reach back into earlier snapshots.
	assert.Equal(t, 200.0, *second.HotendC)
	assert.InDelta(t, 100.0, *second.FanPct, 1e-9)
}

func TestBuilderSetpointWithoutValueKeepsPrior(t *testing.T) {
	t.Parallel()
	b := newTestBuilder(t, BuilderConfig{})

	events, _ := feed(t, b,
		"M104 S200",
		"M104",
		"G1 X1 F600",
	)

	require.Len(t, events, 1)
	require.NotNil(t, events[0].HotendC)
	assert.Equal(t, 200.0, *events[0].HotendC)
}

func TestBuilderStickyCategory(t *testing.T) {
	t.Parallel()
	b := newTestBuilder(t, BuilderConfig{})

	events, _ := feed(t, b,
		"G1 X1 F600",
		";TYPE:Perimeter",
		"G1 X2",
		"G1 X3",
		";TYPE:Infill",
		"G1 X4",
	)

	require.Len(t, events, 4)
	assert.Equal(t, DefaultCategory, events[0].Category)
	assert.Equal(t, "Perimeter", events[1].Category)
	assert.Equal(t, "Perimeter", events[2].Category)
	assert.Equal(t, "Infill", events[3].Category)
}

func TestBuilderSameLineCategoryAndBoundary(t *testing.T) {
	t.Parallel()
	b := newTestBuilder(t, BuilderConfig{})

	_, _ = feed(t, b, "G1 Z0.2 F600", "G1 X5")

	ev, boundary := b.Apply(Classify("G1 Z0.4 X10 ;TYPE:Infill"))
	require.NotNil(t, ev)
	assert.True(t, boundary, "Z rise must open a new group")
	assert.Equal(t, "Infill", ev.Category, "same-line label applies to the boundary event")
}

func TestBuilderZIncreaseBoundaries(t *testing.T) {
	t.Parallel()
	b := newTestBuilder(t, BuilderConfig{})

	_, boundaries := feed(t, b,
		"G1 Z0.2 F600", // anchors, no boundary
		"G1 X10",
		"G1 X20",
		"G1 Z0.4", // one boundary
		"G1 X10",
		"G1 Z0.4 X0", // same Z, no boundary
	)
	assert.Equal(t, 1, boundaries)
}

func TestBuilderZDecreaseIsAnomalyNotBoundary(t *testing.T) {
	t.Parallel()
	b := newTestBuilder(t, BuilderConfig{})

	_, boundaries := feed(t, b,
		"G1 Z0.4 F600",
		"G1 Z0.2",
	)
	assert.Equal(t, 0, boundaries)
	assert.Equal(t, int64(1), b.Counters().ZDecreases)
}

func TestBuilderMalformedFieldKeepsPriorState(t *testing.T) {
	t.Parallel()
	b := newTestBuilder(t, BuilderConfig{})

	events, _ := feed(t, b,
		"G1 X5 F600",
		"G1 X1.2.3 Y5",
	)

	require.Len(t, events, 2)
	// X held its prior value, so the second move is purely in Y.
	assert.Equal(t, 5.0, events[1].X)
	assert.Equal(t, 5.0, events[1].Y)
	assert.InDelta(t, 5.0, events[1].DistanceMM, 1e-9)
	assert.Equal(t, int64(1), b.Counters().MalformedFields)
}

func TestBuilderCountsUnrecognizedCommands(t *testing.T) {
	t.Parallel()
	b := newTestBuilder(t, BuilderConfig{})

	feed(t, b, "G28", "M900 K0.05", "; plain comment", "", "G1 X1 F600")
	assert.Equal(t, int64(2), b.Counters().UnrecognizedCommands)
}

func TestBuilderRelativeAxes(t *testing.T) {
	t.Parallel()
	b := newTestBuilder(t, BuilderConfig{})

	events, _ := feed(t, b,
		"G91",
		"G1 X10 F600",
		"G1 X10",
		"G90",
		"G1 X5",
	)

	require.Len(t, events, 3)
	assert.Equal(t, 10.0, events[0].X)
	assert.Equal(t, 20.0, events[1].X)
	assert.Equal(t, 5.0, events[2].X)
	assert.InDelta(t, 15.0, events[2].DistanceMM, 1e-9)
}

func TestBuilderModeSwitchesExtrusion(t *testing.T) {
	t.Parallel()
	b := newTestBuilder(t, BuilderConfig{})

	events, _ := feed(t, b,
		"G90", // absolute axes and extrusion
		"G1 X10 E2 F600",
		"M83", // back to relative extrusion only
		"G1 X20 E0.5",
	)

	require.Len(t, events, 2)
	assert.InDelta(t, 2.0, events[0].ExtrusionMM, 1e-9)
	assert.InDelta(t, 0.5, events[1].ExtrusionMM, 1e-9)
}

func TestFilamentAreaMM2(t *testing.T) {
	t.Parallel()
	want := math.Pi * 0.875 * 0.875
	assert.InDelta(t, want, FilamentAreaMM2(1.75), 1e-12)
}
