// Package gcode turns raw G-code text into typed tokens and folds those
// tokens into motion events with derived timing, speed, and flow metrics.
//
// The package is defect-tolerant by construction: malformed numeric fields
// invalidate only themselves, unrecognized commands classify as Other, and
// structural anomalies (a sinking Z, a negative extrusion delta) are counted
// and clamped instead of aborting the fold.
package gcode

// TokenKind partitions input lines by how the event builder consumes them.
type TokenKind int

const (
	// TokenOther covers blank lines, plain comments, and any command the
	// profiler does not model. Dropped without error.
	TokenOther TokenKind = iota
	// TokenMotion is a G0/G1 linear move carrying letter-addressed fields.
	TokenMotion
	// TokenSetPosition is G92, re-addressing logical positions without motion.
	TokenSetPosition
	// TokenMode switches absolute/relative positioning (G90/G91/M82/M83).
	TokenMode
	// TokenSetpoint updates a sticky fan or temperature target.
	TokenSetpoint
	// TokenAnnotation is a comment-only line carrying a recognized directive.
	TokenAnnotation
)

// Mode enumerates the positioning-mode switches.
type Mode int

const (
	ModeAbsoluteAxes Mode = iota // G90
	ModeRelativeAxes             // G91
	ModeAbsoluteE                // M82
	ModeRelativeE                // M83
)

// SetpointTarget names which sticky setpoint a TokenSetpoint updates.
type SetpointTarget int

const (
	SetpointFan SetpointTarget = iota
	SetpointHotend
	SetpointBed
	SetpointChamber
)

// AnnotationKind distinguishes the recognized comment directives.
type AnnotationKind int

const (
	// AnnotationCategory is a ";TYPE:<label>" feature-type marker.
	AnnotationCategory AnnotationKind = iota
	// AnnotationLayerMarker is a ";LAYER:<n>" explicit layer index.
	AnnotationLayerMarker
	// AnnotationZHint is a ";Z:<z>" layer-height hint.
	AnnotationZHint
)

// Annotation is a parsed comment directive. Exactly the field matching its
// Kind is meaningful.
type Annotation struct {
	Kind  AnnotationKind
	Label string
	Layer int
	Z     float64
}

// FieldError records one numeric field that failed to parse. The rest of
// the line is unaffected.
type FieldError struct {
	Letter byte
	Raw    string
}

// Token is one classified input line.
//
// A command line with a trailing directive comment carries both: the command
// fields under its command kind and the directive under Annotation. Fields
// holds the first occurrence of each recognized letter; FieldErrs lists
// letters whose values were malformed.
type Token struct {
	Kind     TokenKind
	Mnemonic string

	Fields    map[byte]float64
	FieldErrs []FieldError

	Mode Mode

	Target   SetpointTarget
	HasValue bool
	Value    float64

	Annotation *Annotation
}

// Field returns the value for a field letter and whether it was present.
func (t Token) Field(letter byte) (float64, bool) {
	v, ok := t.Fields[letter]
	return v, ok
}
