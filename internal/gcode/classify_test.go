package gcode

import (
	"testing"
)

func TestClassifyKinds(t *testing.T) {
	tests := []struct {
		name string
		line string
		kind TokenKind
	}{
		{"linear move G1", "G1 X10 Y5 F1200", TokenMotion},
		{"rapid move G0", "G0 X0 Y0", TokenMotion},
		{"set position", "G92 E0", TokenSetPosition},
		{"absolute axes", "G90", TokenMode},
		{"relative axes", "G91", TokenMode},
		{"absolute extrusion", "M82", TokenMode},
		{"relative extrusion", "M83", TokenMode},
		{"fan on", "M106 S255", TokenSetpoint},
		{"fan off", "M107", TokenSetpoint},
		{"hotend set", "M104 S210", TokenSetpoint},
		{"hotend set and wait", "M109 S210", TokenSetpoint},
		{"bed set", "M140 S60", TokenSetpoint},
		{"bed set and wait", "M190 S60", TokenSetpoint},
		{"chamber set", "M141 S45", TokenSetpoint},
		{"category directive", ";TYPE:Perimeter", TokenAnnotation},
		{"layer directive", ";LAYER:3", TokenAnnotation},
		{"z hint directive", ";Z:0.45", TokenAnnotation},
		{"arc move unmodeled", "G2 X5 Y5 I1 J0", TokenOther},
		{"home unmodeled", "G28 W", TokenOther},
		{"report temp unmodeled", "M105", TokenOther},
		{"blank line", "", TokenOther},
		{"plain comment", "; just a note", TokenOther},
		{"lowercase mnemonic", "g1 x10", TokenOther},
		{"indented command", "  G1 X10", TokenOther},
		{"no space after mnemonic", "G1X10", TokenOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := Classify(tt.line)
			if tok.Kind != tt.kind {
				t.Errorf("Classify(%q).Kind = %v, want %v", tt.line, tok.Kind, tt.kind)
			}
		})
	}
}

func TestClassifyMotionFields(t *testing.T) {
	tok := Classify("G1 X10.5 Y-3 Z0.2 E0.42 F1200 S80")
	if tok.Kind != TokenMotion || tok.Mnemonic != "G1" {
		t.Fatalf("unexpected token %+v", tok)
	}
	want := map[byte]float64{'X': 10.5, 'Y': -3, 'Z': 0.2, 'E': 0.42, 'F': 1200, 'S': 80}
	for letter, v := range want {
		got, ok := tok.Field(letter)
		if !ok || got != v {
			t.Errorf("field %c = %v (present=%v), want %v", letter, got, ok, v)
		}
	}
	if len(tok.FieldErrs) != 0 {
		t.Errorf("unexpected field errors: %v", tok.FieldErrs)
	}
}

func TestClassifyFirstOccurrenceWins(t *testing.T) {
	tok := Classify("G1 X1 X2 Y5")
	if v, _ := tok.Field('X'); v != 1 {
		t.Errorf("X = %v, want first occurrence 1", v)
	}
}

func TestClassifyMalformedFieldIsIsolated(t *testing.T) {
	tok := Classify("G1 X1.2.3 Y5 F600")
	if tok.Kind != TokenMotion {
		t.Fatalf("kind = %v, want motion", tok.Kind)
	}
	if _, ok := tok.Field('X'); ok {
		t.Error("malformed X should not produce a value")
	}
	if v, ok := tok.Field('Y'); !ok || v != 5 {
		t.Errorf("Y = %v (present=%v), want 5", v, ok)
	}
	if v, ok := tok.Field('F'); !ok || v != 600 {
		t.Errorf("F = %v (present=%v), want 600", v, ok)
	}
	if len(tok.FieldErrs) != 1 || tok.FieldErrs[0].Letter != 'X' || tok.FieldErrs[0].Raw != "1.2.3" {
		t.Errorf("field errors = %v, want one error for X(1.2.3)", tok.FieldErrs)
	}
}

func TestClassifyAnnotations(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Annotation
	}{
		{"category", ";TYPE:Perimeter", Annotation{Kind: AnnotationCategory, Label: "Perimeter"}},
		{"category with spacing", "; TYPE: External perimeter ", Annotation{Kind: AnnotationCategory, Label: "External perimeter"}},
		{"layer marker", ";LAYER:12", Annotation{Kind: AnnotationLayerMarker, Layer: 12}},
		{"layer marker spaced", "; LAYER: 3", Annotation{Kind: AnnotationLayerMarker, Layer: 3}},
		{"z hint", ";Z:0.45", Annotation{Kind: AnnotationZHint, Z: 0.45}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := Classify(tt.line)
			if tok.Annotation == nil {
				t.Fatalf("Classify(%q) carries no annotation", tt.line)
			}
			if *tok.Annotation != tt.want {
				t.Errorf("annotation = %+v, want %+v", *tok.Annotation, tt.want)
			}
		})
	}
}

func TestClassifyCommandWithTrailingDirective(t *testing.T) {
	tok := Classify("G1 Z0.4 F9000 ;TYPE:Bridge infill")
	if tok.Kind != TokenMotion {
		t.Fatalf("kind = %v, want motion", tok.Kind)
	}
	if v, ok := tok.Field('Z'); !ok || v != 0.4 {
		t.Errorf("Z = %v (present=%v), want 0.4", v, ok)
	}
	if tok.Annotation == nil || tok.Annotation.Label != "Bridge infill" {
		t.Errorf("annotation = %+v, want category Bridge infill", tok.Annotation)
	}
}

func TestClassifyCommentNeverLeaksFields(t *testing.T) {
	// Letters inside a plain comment must not parse as fields.
	tok := Classify("G1 X5 ; wipe to X90 Z3")
	if v, _ := tok.Field('X'); v != 5 {
		t.Errorf("X = %v, want 5", v)
	}
	if _, ok := tok.Field('Z'); ok {
		t.Error("Z from comment text should not be a field")
	}
	if tok.Annotation != nil {
		t.Errorf("plain comment misread as directive: %+v", tok.Annotation)
	}
}

func TestClassifySetpointValues(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		target   SetpointTarget
		hasValue bool
		value    float64
	}{
		{"fan with value", "M106 S128", SetpointFan, true, 128},
		{"fan without value", "M106", SetpointFan, false, 0},
		{"fan off forces zero", "M107", SetpointFan, true, 0},
		{"hotend", "M104 S215.5", SetpointHotend, true, 215.5},
		{"hotend wait", "M109 R210 S200", SetpointHotend, true, 200},
		{"bed", "M190 S65", SetpointBed, true, 65},
		{"chamber", "M141 S40", SetpointChamber, true, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := Classify(tt.line)
			if tok.Kind != TokenSetpoint || tok.Target != tt.target {
				t.Fatalf("token = %+v, want setpoint target %v", tok, tt.target)
			}
			if tok.HasValue != tt.hasValue || (tt.hasValue && tok.Value != tt.value) {
				t.Errorf("value = (%v, %v), want (%v, %v)", tok.Value, tok.HasValue, tt.value, tt.hasValue)
			}
		})
	}
}

func TestClassifyUnrecognizedKeepsMnemonic(t *testing.T) {
	tok := Classify("M201 X1000 Y1000")
	if tok.Kind != TokenOther || tok.Mnemonic != "M201" {
		t.Errorf("token = %+v, want Other with mnemonic M201", tok)
	}
	blank := Classify("")
	if blank.Mnemonic != "" {
		t.Errorf("blank line mnemonic = %q, want empty", blank.Mnemonic)
	}
}
