package pipeline

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Prometheus Metrics Definition
var (
	linesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gcodelens_lines_processed_total",
		Help: "Total number of input lines classified.",
	})
	motionEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gcodelens_motion_events_total",
		Help: "Total number of motion events emitted by the event builder.",
	})
	malformedFields = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gcodelens_malformed_fields_total",
		Help: "Total number of numeric fields that failed to parse.",
	})
	unrecognizedCommands = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gcodelens_unrecognized_commands_total",
		Help: "Total number of command lines with unrecognized mnemonics.",
	})
	zDecreases = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gcodelens_z_decreases_total",
		Help: "Total number of Z decreases observed (structural anomalies, never boundaries).",
	})
	openGroupOrdinal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gcodelens_open_group_ordinal",
		Help: "Ordinal of the group currently accumulating events.",
	})
	groupsFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gcodelens_groups_finalized_total",
		Help: "Total number of groups closed and summarized.",
	})
	eventSpeeds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gcodelens_event_speed_mm_per_s",
		Help:    "Commanded speed of emitted motion events.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
	limitViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gcodelens_limit_violations_total",
			Help: "Total number of limit violations detected, per limit and comparison.",
		},
		[]string{"limit", "comparison"},
	)
)

// ServeMetrics exposes the default Prometheus registry on addr until ctx is
// cancelled. Exposition is a side channel: it shares nothing with the fold
// beyond the registered instruments and never blocks it.
func ServeMetrics(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	logger.Info("Metrics endpoint listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown failed", zap.Error(err))
		}
		<-errCh
		return nil

	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
			return err
		}
		return nil
	}
}
