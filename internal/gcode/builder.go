package gcode

import (
	"math"

	"go.uber.org/zap"
)

// DefaultCategory labels events seen before any ";TYPE:" marker.
const DefaultCategory = "UNKNOWN"

// FilamentAreaMM2 returns the cross-section area of filament with the
// given diameter, the factor that converts extruded length to volume.
func FilamentAreaMM2(diameterMM float64) float64 {
	r := diameterMM / 2
	return math.Pi * r * r
}

// Counters tallies the recoverable input defects observed during a fold.
type Counters struct {
	MalformedFields      int64
	UnrecognizedCommands int64
	ZDecreases           int64
}

// BuilderConfig carries the knobs the event builder needs. A nil Detector
// defaults to the Z-increase strategy with ZEpsilonMM tolerance.
type BuilderConfig struct {
	FilamentAreaMM2 float64
	ZEpsilonMM      float64
	Detector        LayerDetector
}

// Builder folds classified tokens into motion events while tracking
// cumulative machine state: position, extrusion axis, positioning modes,
// sticky feedrate, setpoints, and the active category label.
//
// Builder is not safe for concurrent use; the fold is inherently
// sequential because every event depends on the state left by the last.
type Builder struct {
	logger   *zap.Logger
	area     float64
	zEps     float64
	detector LayerDetector

	x, y, z, e   float64
	feedMMPerMin float64
	axesRelative bool
	eRelative    bool
	category     string

	fan     *float64
	hotend  *float64
	bed     *float64
	chamber *float64

	counters Counters
}

// NewBuilder returns a Builder with standard machine defaults: absolute
// axes, relative extrusion, all positions at origin, no setpoints known.
func NewBuilder(cfg BuilderConfig, logger *zap.Logger) *Builder {
	detector := cfg.Detector
	if detector == nil {
		detector = NewZIncreaseDetector(cfg.ZEpsilonMM)
	}
	b := &Builder{
		logger:    logger,
		area:      cfg.FilamentAreaMM2,
		zEps:      cfg.ZEpsilonMM,
		detector:  detector,
		eRelative: true,
		category:  DefaultCategory,
	}
	logger.Debug("Event builder initialized",
		zap.Float64("filament_area_mm2", cfg.FilamentAreaMM2),
		zap.Float64("z_epsilon_mm", cfg.ZEpsilonMM),
	)
	return b
}

// Apply folds one token into the builder state. It returns the emitted
// event, if any, and whether a group boundary opens on this line.
//
// Ordering contract: sticky-state updates from the token's annotation take
// effect first, then the boundary decision, then the event. A returned
// event therefore belongs to the group the boundary opened and already
// carries any category label set on the same line.
func (b *Builder) Apply(tok Token) (*MotionEvent, bool) {
	if len(tok.FieldErrs) > 0 {
		b.counters.MalformedFields += int64(len(tok.FieldErrs))
		for _, fe := range tok.FieldErrs {
			b.logger.Debug("Malformed field ignored",
				zap.String("field", string(fe.Letter)),
				zap.String("raw", fe.Raw),
			)
		}
	}

	boundary := false
	if tok.Annotation != nil {
		if tok.Annotation.Kind == AnnotationCategory {
			b.category = tok.Annotation.Label
		}
		boundary = b.detector.OnAnnotation(tok.Annotation)
	}

	switch tok.Kind {
	case TokenMotion:
		ev := b.applyMotion(tok)
		if ev != nil {
			boundary = b.detector.OnMove(ev.Z) || boundary
		}
		return ev, boundary
	case TokenSetPosition:
		b.applySetPosition(tok)
	case TokenMode:
		b.applyMode(tok.Mode)
	case TokenSetpoint:
		b.applySetpoint(tok)
	case TokenOther:
		if tok.Mnemonic != "" {
			b.counters.UnrecognizedCommands++
		}
	}
	return nil, boundary
}

// Counters returns the defect tallies accumulated so far.
func (b *Builder) Counters() Counters {
	return b.counters
}

func (b *Builder) applyMotion(tok Token) *MotionEvent {
	nx, ny, nz := b.x, b.y, b.z
	if v, ok := tok.Fields['X']; ok {
		nx = b.axisTarget(b.x, v)
	}
	if v, ok := tok.Fields['Y']; ok {
		ny = b.axisTarget(b.y, v)
	}
	if v, ok := tok.Fields['Z']; ok {
		nz = b.axisTarget(b.z, v)
	}
	if v, ok := tok.Fields['F']; ok {
		b.feedMMPerMin = v
	}

	var de float64
	ne := b.e
	if v, ok := tok.Fields['E']; ok {
		if b.eRelative {
			de = v
			ne = b.e + v
		} else {
			de = v - b.e
			ne = v
		}
	}

	dx, dy, dz := nx-b.x, ny-b.y, nz-b.z
	dist := math.Sqrt(dx*dx + dy*dy + dz*dz)

	if nz < b.z-b.zEps {
		b.counters.ZDecreases++
		b.logger.Debug("Z decreased between moves",
			zap.Float64("from", b.z),
			zap.Float64("to", nz),
		)
	}

	b.x, b.y, b.z, b.e = nx, ny, nz, ne

	if dist == 0 && de == 0 {
		return nil
	}

	var speed float64
	if b.feedMMPerMin > 0 {
		speed = b.feedMMPerMin / 60
	}
	var duration float64
	if speed > 0 && dist > 0 {
		duration = dist / speed
	}

	extrusion, retraction := de, 0.0
	if de < 0 {
		extrusion, retraction = 0, -de
	}
	var flow float64
	if duration > 0 && extrusion > 0 {
		flow = extrusion * b.area / duration
	}

	return &MotionEvent{
		X:                nx,
		Y:                ny,
		Z:                nz,
		DistanceMM:       dist,
		ExtrusionMM:      extrusion,
		RetractionMM:     retraction,
		FeedrateMMPerMin: b.feedMMPerMin,
		SpeedMMPerS:      speed,
		DurationS:        duration,
		FlowMM3PerS:      flow,
		FanPct:           b.fan,
		HotendC:          b.hotend,
		BedC:             b.bed,
		ChamberC:         b.chamber,
		Category:         b.category,
		IsExtruding:      de > 0,
	}
}

func (b *Builder) axisTarget(current, v float64) float64 {
	if b.axesRelative {
		return current + v
	}
	return v
}

// applySetPosition handles G92: logical re-addressing, no motion, and no
// boundary consideration. Only the axes present on the line change.
func (b *Builder) applySetPosition(tok Token) {
	if v, ok := tok.Fields['X']; ok {
		b.x = v
	}
	if v, ok := tok.Fields['Y']; ok {
		b.y = v
	}
	if v, ok := tok.Fields['Z']; ok {
		b.z = v
	}
	if v, ok := tok.Fields['E']; ok {
		b.e = v
	}
}

func (b *Builder) applyMode(m Mode) {
	switch m {
	case ModeAbsoluteAxes:
		b.axesRelative = false
		b.eRelative = false
	case ModeRelativeAxes:
		b.axesRelative = true
		b.eRelative = true
	case ModeAbsoluteE:
		b.eRelative = false
	case ModeRelativeE:
		b.eRelative = true
	}
}

// applySetpoint snapshots the new value behind a fresh pointer so events
// already emitted keep the value they saw.
func (b *Builder) applySetpoint(tok Token) {
	if !tok.HasValue {
		return
	}
	switch tok.Target {
	case SetpointFan:
		pct := tok.Value / 255 * 100
		b.fan = &pct
	case SetpointHotend:
		v := tok.Value
		b.hotend = &v
	case SetpointBed:
		v := tok.Value
		b.bed = &v
	case SetpointChamber:
		v := tok.Value
		b.chamber = &v
	}
}
