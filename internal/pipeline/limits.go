package pipeline

import (
	"go.uber.org/zap"

	"github.com/gcodelens/gcodelens/internal/config"
)

// LimitChecker evaluates finalized group summaries against the configured
// machine limits. Violations are logged as structured warnings and counted;
// they never stop the run.
type LimitChecker struct {
	limits config.LimitsConfig
	logger *zap.Logger
}

// NewLimitChecker creates a new LimitChecker instance.
func NewLimitChecker(limits config.LimitsConfig, logger *zap.Logger) *LimitChecker {
	logger.Debug("Limit checker initialized",
		zap.Bool("max_flow_set", limits.MaxFlowMM3PerS != nil),
		zap.Bool("max_speed_set", limits.MaxSpeedMMPerS != nil),
		zap.Bool("layer_height_bounds_set", limits.MinLayerHeightMM != nil || limits.MaxLayerHeightMM != nil),
	)
	return &LimitChecker{limits: limits, logger: logger}
}

// Check runs every configured limit against one finalized group and logs
// the group's headline stats.
func (lc *LimitChecker) Check(g GroupSummary) {
	sugar := lc.logger.Sugar()
	lc.checkFlow(sugar, g)
	lc.checkSpeed(sugar, g)
	lc.checkLayerHeight(sugar, g)
	lc.logGroup(sugar, g)
}

func (lc *LimitChecker) checkFlow(sugar *zap.SugaredLogger, g GroupSummary) {
	limit := lc.limits.MaxFlowMM3PerS
	if limit == nil || g.P99FlowMM3PerS <= *limit {
		return
	}
	sugar.Warnw("Flow limit violation",
		"group", g.Ordinal,
		"z_mm", g.ZMM,
		"p99_flow_mm3_s", g.P99FlowMM3PerS,
		"limit_mm3_s", *limit,
		"comparison", ">",
	)
	limitViolations.WithLabelValues("max_flow", ">").Inc()
}

func (lc *LimitChecker) checkSpeed(sugar *zap.SugaredLogger, g GroupSummary) {
	limit := lc.limits.MaxSpeedMMPerS
	if limit == nil || g.P99SpeedMMPerS <= *limit {
		return
	}
	sugar.Warnw("Speed limit violation",
		"group", g.Ordinal,
		"z_mm", g.ZMM,
		"p99_speed_mm_s", g.P99SpeedMMPerS,
		"limit_mm_s", *limit,
		"comparison", ">",
	)
	limitViolations.WithLabelValues("max_speed", ">").Inc()
}

func (lc *LimitChecker) checkLayerHeight(sugar *zap.SugaredLogger, g GroupSummary) {
	// Non-positive heights come from anomalies (Z decreases) or groups
	// without motion; those are reported through the anomaly counters.
	if g.LayerHeightMM <= 0 {
		return
	}
	if lo := lc.limits.MinLayerHeightMM; lo != nil && g.LayerHeightMM < *lo {
		sugar.Warnw("Layer height below minimum",
			"group", g.Ordinal,
			"z_mm", g.ZMM,
			"layer_height_mm", g.LayerHeightMM,
			"limit_mm", *lo,
			"comparison", "<",
		)
		limitViolations.WithLabelValues("min_layer_height", "<").Inc()
	}
	if hi := lc.limits.MaxLayerHeightMM; hi != nil && g.LayerHeightMM > *hi {
		sugar.Warnw("Layer height above maximum",
			"group", g.Ordinal,
			"z_mm", g.ZMM,
			"layer_height_mm", g.LayerHeightMM,
			"limit_mm", *hi,
			"comparison", ">",
		)
		limitViolations.WithLabelValues("max_layer_height", ">").Inc()
	}
}

func (lc *LimitChecker) logGroup(sugar *zap.SugaredLogger, g GroupSummary) {
	sugar.Debugw("Group finalized",
		"group", g.Ordinal,
		"z_mm", g.ZMM,
		"time_s", g.TimeS,
		"events", g.Events,
		"p99_speed_mm_s", g.P99SpeedMMPerS,
		"p99_flow_mm3_s", g.P99FlowMM3PerS,
	)
}
