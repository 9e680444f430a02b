package gcode

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reCategory = regexp.MustCompile(`^\s*TYPE:(.+?)\s*$`)
	reLayer    = regexp.MustCompile(`^\s*LAYER:\s*([0-9]+)`)
	reZHint    = regexp.MustCompile(`^\s*Z:([0-9.+-]+)`)
	reField    = regexp.MustCompile(`([XYZEFS])([0-9.+-]+)`)
)

// Classify parses one raw line into a Token. It is pure and total: every
// line yields a token, and a field that fails to parse surfaces as a
// FieldError on the token rather than an error return.
func Classify(line string) Token {
	code, comment, hasComment := cutComment(line)

	var ann *Annotation
	if hasComment {
		ann = parseAnnotation(comment)
	}

	if strings.TrimSpace(code) == "" {
		if ann != nil {
			return Token{Kind: TokenAnnotation, Annotation: ann}
		}
		return Token{Kind: TokenOther}
	}

	// Commands must start at column zero; slicers emit them that way and
	// indented text is treated as unrecognized.
	if code[0] == ' ' || code[0] == '\t' {
		return Token{Kind: TokenOther, Mnemonic: strings.Fields(code)[0], Annotation: ann}
	}

	mnemonic := strings.Fields(code)[0]
	rest := code[len(mnemonic):]

	tok := Token{Mnemonic: mnemonic, Annotation: ann}
	switch mnemonic {
	case "G0", "G1":
		tok.Kind = TokenMotion
		tok.Fields, tok.FieldErrs = parseFields(rest)
	case "G92":
		tok.Kind = TokenSetPosition
		tok.Fields, tok.FieldErrs = parseFields(rest)
	case "G90":
		tok.Kind, tok.Mode = TokenMode, ModeAbsoluteAxes
	case "G91":
		tok.Kind, tok.Mode = TokenMode, ModeRelativeAxes
	case "M82":
		tok.Kind, tok.Mode = TokenMode, ModeAbsoluteE
	case "M83":
		tok.Kind, tok.Mode = TokenMode, ModeRelativeE
	case "M106":
		tok.Kind, tok.Target = TokenSetpoint, SetpointFan
		tok.HasValue, tok.Value, tok.FieldErrs = parseSetpointValue(rest)
	case "M107":
		tok.Kind, tok.Target = TokenSetpoint, SetpointFan
		tok.HasValue, tok.Value = true, 0
	case "M104", "M109":
		tok.Kind, tok.Target = TokenSetpoint, SetpointHotend
		tok.HasValue, tok.Value, tok.FieldErrs = parseSetpointValue(rest)
	case "M140", "M190":
		tok.Kind, tok.Target = TokenSetpoint, SetpointBed
		tok.HasValue, tok.Value, tok.FieldErrs = parseSetpointValue(rest)
	case "M141":
		tok.Kind, tok.Target = TokenSetpoint, SetpointChamber
		tok.HasValue, tok.Value, tok.FieldErrs = parseSetpointValue(rest)
	default:
		tok.Kind = TokenOther
	}
	return tok
}

// cutComment splits a line at the first semicolon.
func cutComment(line string) (code, comment string, hasComment bool) {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		return line[:i], line[i+1:], true
	}
	return line, "", false
}

// parseAnnotation recognizes the directive forms inside a comment body.
// Anything else returns nil.
func parseAnnotation(comment string) *Annotation {
	if m := reCategory.FindStringSubmatch(comment); m != nil {
		return &Annotation{Kind: AnnotationCategory, Label: strings.TrimSpace(m[1])}
	}
	if m := reLayer.FindStringSubmatch(comment); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		return &Annotation{Kind: AnnotationLayerMarker, Layer: n}
	}
	if m := reZHint.FindStringSubmatch(comment); m != nil {
		z, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		return &Annotation{Kind: AnnotationZHint, Z: z}
	}
	return nil
}

// parseFields extracts letter-addressed numeric fields. The first
// occurrence of a letter wins; malformed values are reported per field.
func parseFields(rest string) (map[byte]float64, []FieldError) {
	matches := reField.FindAllStringSubmatch(rest, -1)
	if len(matches) == 0 {
		return nil, nil
	}
	fields := make(map[byte]float64, len(matches))
	var errs []FieldError
	seen := [256]bool{}
	for _, m := range matches {
		letter := m[1][0]
		if seen[letter] {
			continue
		}
		seen[letter] = true
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			errs = append(errs, FieldError{Letter: letter, Raw: m[2]})
			continue
		}
		fields[letter] = v
	}
	return fields, errs
}

// parseSetpointValue reads the S field of a setpoint command.
func parseSetpointValue(rest string) (bool, float64, []FieldError) {
	fields, errs := parseFields(rest)
	v, ok := fields['S']
	return ok, v, errs
}
