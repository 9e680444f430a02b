package gcode

// MotionEvent is one realized motion command together with its derived
// metrics and a snapshot of the sticky state in effect when it executed.
// Setpoint fields are nil until the stream has set them at least once; the
// pointers are never mutated after emission, so events are safe to retain.
type MotionEvent struct {
	// End position of the move, millimeters.
	X float64
	Y float64
	Z float64

	// DistanceMM is the Euclidean XYZ displacement of the move.
	DistanceMM float64
	// ExtrusionMM is the extrusion delta clamped to zero or more.
	ExtrusionMM float64
	// RetractionMM is the magnitude of a negative extrusion delta, else 0.
	RetractionMM float64

	// FeedrateMMPerMin is the sticky commanded feedrate; 0 when never set.
	FeedrateMMPerMin float64
	// SpeedMMPerS is the feedrate in mm/s when positive, else 0.
	SpeedMMPerS float64
	// DurationS is distance over speed; 0 for zero-distance moves and for
	// moves executed before any positive feedrate was known.
	DurationS float64
	// FlowMM3PerS is extruded volume over duration; 0 when either is 0.
	FlowMM3PerS float64

	FanPct   *float64
	HotendC  *float64
	BedC     *float64
	ChamberC *float64

	// Category is the sticky feature-type label, "UNKNOWN" before the
	// first marker.
	Category string

	// IsExtruding reports whether the raw extrusion delta was positive.
	IsExtruding bool
}

// Travel reports whether the move displaced without touching the extruder.
// A retracting move is neither travel nor extrusion.
func (e *MotionEvent) Travel() bool {
	return e.DistanceMM > 0 && !e.IsExtruding && e.RetractionMM == 0
}
