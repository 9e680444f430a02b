package pipeline

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/gcodelens/gcodelens/internal/config"
	"github.com/gcodelens/gcodelens/internal/gcode"
)

// Profiler drives the single-pass fold over a line source: classify each
// line, apply it to the event builder, route the resulting events into the
// open group, the event's category bucket and the whole-print totals, and
// finalize groups as boundaries arrive.
type Profiler struct {
	cfg     *config.Config
	source  LineSource
	builder *gcode.Builder
	checker *LimitChecker
	logger  *zap.Logger

	markerMode bool
	keepEvents bool

	groups      []GroupSummary
	open        *Aggregator
	openOrdinal int
	openZHint   *float64
	categories  map[string]*Aggregator
	totals      *Aggregator
	events      []gcode.MotionEvent

	lines           int64
	eventCount      int64
	cumulativeTimeS float64
	prevGroupZ      float64
	lastCounters    gcode.Counters
}

// New creates and wires up a profiler over the given line source. The
// source is owned by the caller; Run does not close it.
func New(cfg *config.Config, source LineSource, logger *zap.Logger) *Profiler {
	initLogger := logger.Named("profiler.init")

	markerMode := cfg.Profile.BoundaryStrategy == config.BoundaryMarker
	var detector gcode.LayerDetector
	if markerMode {
		detector = gcode.NewMarkerDetector(cfg.Profile.ZEpsilonMM)
	} else {
		detector = gcode.NewZIncreaseDetector(cfg.Profile.ZEpsilonMM)
	}

	builder := gcode.NewBuilder(gcode.BuilderConfig{
		FilamentAreaMM2: gcode.FilamentAreaMM2(cfg.Profile.FilamentDiameterMM),
		ZEpsilonMM:      cfg.Profile.ZEpsilonMM,
		Detector:        detector,
	}, logger.Named("builder"))

	p := &Profiler{
		cfg:        cfg,
		source:     source,
		builder:    builder,
		checker:    NewLimitChecker(cfg.Limits, logger.Named("limits")),
		logger:     logger.Named("profiler"),
		markerMode: markerMode,
		keepEvents: cfg.Profile.KeepEvents,
		open:       NewAggregator(groupOptions(cfg)),
		categories: make(map[string]*Aggregator),
		totals:     NewAggregator(totalsOptions(cfg)),
	}

	initLogger.Debug("Profiler created",
		zap.String("boundary_strategy", cfg.Profile.BoundaryStrategy),
		zap.Bool("keep_events", p.keepEvents),
	)
	return p
}

func groupOptions(cfg *config.Config) AggregatorOptions {
	return AggregatorOptions{
		MaxSpeedMMPerS: cfg.Limits.MaxSpeedMMPerS,
		MaxFlowMM3PerS: cfg.Limits.MaxFlowMM3PerS,
	}
}

// totalsOptions adds histogram bins: only the whole-print bucket feeds the
// report's distribution charts.
func totalsOptions(cfg *config.Config) AggregatorOptions {
	opts := groupOptions(cfg)
	opts.HistBins = cfg.Report.Bins
	return opts
}

// Run executes the fold to end of stream and assembles the Result. The
// stream ends at file EOF or, for a Kafka source, on context cancellation;
// either way the open group and all buckets finalize before returning.
func (p *Profiler) Run(ctx context.Context) (*Result, error) {
	sugar := p.logger.Sugar()
	sugar.Info("Starting profiler run...")

	openGroupOrdinal.Set(0)

	for {
		line, err := p.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		p.processLine(line)

		if every := int64(p.cfg.Metrics.StatusEveryLines); every > 0 && p.lines%every == 0 {
			sugar.Infow("Progress",
				"lines", p.lines,
				"events", p.eventCount,
				"groups_closed", len(p.groups),
			)
		}
	}

	result := p.finish()
	sugar.Infow("Profiler run finished",
		"lines", result.Lines,
		"events", result.Totals.Events,
		"groups", len(result.Groups),
		"categories", len(result.Categories),
	)
	return result, nil
}

// processLine folds one raw line. Per-line ordering: sticky annotation
// state first (inside Apply), then a signaled boundary closes the previous
// group, then the line's event lands in whichever group is open afterwards.
func (p *Profiler) processLine(line string) {
	p.lines++
	linesProcessed.Inc()

	tok := gcode.Classify(line)
	ev, boundary := p.builder.Apply(tok)

	if boundary {
		p.closeOpenGroup()
	}

	// A ";Z:" hint names the Z of the group it opens (or rides in), so it
	// applies after the boundary decision.
	if p.markerMode && tok.Annotation != nil && tok.Annotation.Kind == gcode.AnnotationZHint {
		z := tok.Annotation.Z
		p.openZHint = &z
	}

	if ev != nil {
		p.eventCount++
		motionEvents.Inc()
		if ev.SpeedMMPerS > 0 {
			eventSpeeds.Observe(ev.SpeedMMPerS)
		}

		p.open.Accumulate(ev)
		p.categoryFor(ev.Category).Accumulate(ev)
		p.totals.Accumulate(ev)
		if p.keepEvents {
			p.events = append(p.events, *ev)
		}
	}

	p.syncCounterMetrics()
}

// closeOpenGroup finalizes the open group and opens the next one. A group
// that never saw an event is reused instead of emitted, so ordinals stay
// dense over non-empty groups.
func (p *Profiler) closeOpenGroup() {
	if p.open.Empty() {
		return
	}

	s := p.open.Finalize()
	g := GroupSummary{Summary: s, Ordinal: p.openOrdinal}
	if p.openZHint != nil {
		g.ZMM = *p.openZHint
	} else {
		g.ZMM = s.LastZ
	}
	g.LayerHeightMM = g.ZMM - p.prevGroupZ
	p.cumulativeTimeS += s.TimeS
	g.CumulativeTimeS = p.cumulativeTimeS

	p.checker.Check(g)
	p.groups = append(p.groups, g)
	groupsFinalized.Inc()

	p.prevGroupZ = g.ZMM
	p.openOrdinal++
	p.open = NewAggregator(groupOptions(p.cfg))
	p.openZHint = nil
	openGroupOrdinal.Set(float64(p.openOrdinal))
}

func (p *Profiler) categoryFor(label string) *Aggregator {
	agg, ok := p.categories[label]
	if !ok {
		agg = NewAggregator(groupOptions(p.cfg))
		p.categories[label] = agg
		p.logger.Debug("Created new category bucket", zap.String("category", label))
	}
	return agg
}

// finish closes the open group and finalizes every bucket.
func (p *Profiler) finish() *Result {
	p.closeOpenGroup()

	categories := make(map[string]Summary, len(p.categories))
	for label, agg := range p.categories {
		categories[label] = agg.Finalize()
	}

	return &Result{
		Groups:     p.groups,
		Categories: categories,
		Totals:     p.totals.Finalize(),
		Lines:      p.lines,
		Counters:   p.builder.Counters(),
		Events:     p.events,
	}
}

// syncCounterMetrics mirrors the builder's per-run counters into the
// process-level Prometheus counters by delta.
func (p *Profiler) syncCounterMetrics() {
	c := p.builder.Counters()
	if d := c.MalformedFields - p.lastCounters.MalformedFields; d > 0 {
		malformedFields.Add(float64(d))
	}
	if d := c.UnrecognizedCommands - p.lastCounters.UnrecognizedCommands; d > 0 {
		unrecognizedCommands.Add(float64(d))
	}
	if d := c.ZDecreases - p.lastCounters.ZDecreases; d > 0 {
		zDecreases.Add(float64(d))
	}
	p.lastCounters = c
}
