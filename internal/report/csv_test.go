package report

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcodelens/gcodelens/internal/gcode"
)

func parseCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteLayersCSV(t *testing.T) {
	t.Parallel()

	rep := Build(testResult(), testConfig(t))

	var buf bytes.Buffer
	require.NoError(t, rep.writeLayersCSV(&buf))

	records := parseCSV(t, &buf)
	require.Len(t, records, 4)
	if diff := cmp.Diff(layersHeader, records[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	row := records[1]
	require.Len(t, row, len(layersHeader))
	assert.Equal(t, "0", row[0])   // layer
	assert.Equal(t, "0.2", row[1]) // z_mm
	assert.Equal(t, "5", row[4])   // time_s
	assert.Equal(t, "210", row[22], "hotend_c")
	assert.Equal(t, "", row[23], "bed_c never set")
	assert.Equal(t, "25", row[25], "time_over_speed_pct")
}

func TestWriteCategoriesCSV(t *testing.T) {
	t.Parallel()

	rep := Build(testResult(), testConfig(t))

	var buf bytes.Buffer
	require.NoError(t, rep.writeCategoriesCSV(&buf))

	records := parseCSV(t, &buf)
	require.Len(t, records, 3)
	if diff := cmp.Diff(categoriesHeader, records[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "Infill", records[1][0])
	assert.Equal(t, "Skirt", records[2][0])
	assert.Equal(t, "0.06", records[1][6], "filament_m for 60 mm extruded")
}

func TestWriteEventsCSV(t *testing.T) {
	t.Parallel()

	res := testResult()
	res.Events = []gcode.MotionEvent{
		{Category: "Skirt", X: 1, Y: 2, Z: 0.2, DistanceMM: 10, SpeedMMPerS: 40, DurationS: 0.25},
		{Category: "Infill", DistanceMM: 5, ExtrusionMM: 1, FlowMM3PerS: 3},
	}
	rep := Build(res, testConfig(t))

	var buf bytes.Buffer
	require.NoError(t, rep.writeEventsCSV(&buf))

	records := parseCSV(t, &buf)
	require.Len(t, records, 3)
	if diff := cmp.Diff(eventsHeader, records[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "0", records[1][0])
	assert.Equal(t, "Skirt", records[1][1])
	assert.Equal(t, "0.25", records[1][9], "duration_s")
	assert.Equal(t, "3", records[2][10], "flow_mm3_s")
}

func TestWriteCompareCSV(t *testing.T) {
	t.Parallel()

	c := &Comparison{
		Rows: []CompareRow{
			{ZMM: 0.2, LayerA: 0, LayerB: 0, TimeAS: 10, TimeBS: 12, TimeDeltaS: -2},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, c.writeCSV(&buf))

	records := parseCSV(t, &buf)
	require.Len(t, records, 2)
	if diff := cmp.Diff(compareHeader, records[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "-2", records[1][5], "time_delta_s")
}
