package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/gcodelens/gcodelens/internal/config"
	"github.com/gcodelens/gcodelens/internal/logging"
	"github.com/gcodelens/gcodelens/internal/pipeline"
	"github.com/gcodelens/gcodelens/internal/report"
	"github.com/gcodelens/gcodelens/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to the configuration file (optional; defaults apply without one)")
	inputFile   = flag.String("input", "", "Path to the G-code file to profile")
	slicerFile  = flag.String("slicer", "", "Path to a slicer-exported profile with filament and limit overrides")
	compareFile = flag.String("compare", "", "Path to a baseline G-code file to profile and diff against")
	outputDir   = flag.String("output", "", "Report output directory (overrides report.outputDir)")
	follow      = flag.Bool("follow", false, "Consume lines from Kafka instead of reading a file")
	keepEvents  = flag.Bool("events", false, "Keep per-event detail for events.csv and the top-flow table")

	logger *zap.Logger
)

func main() {
	// Initialize Configuration
	flag.Parse()

	if *inputFile == "" && !*follow {
		fmt.Fprintln(os.Stderr, "FATAL: -input is required unless running with -follow")
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration from %s: %v\n", *configFile, err)
		os.Exit(1)
	}
	if *slicerFile != "" {
		prof, err := config.LoadSlicerProfile(*slicerFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: Failed to load slicer profile from %s: %v\n", *slicerFile, err)
			os.Exit(1)
		}
		cfg.ApplySlicerProfile(prof)
	}
	if *outputDir != "" {
		cfg.Report.OutputDir = *outputDir
	}
	if *keepEvents {
		cfg.Profile.KeepEvents = true
	}

	// Initialize Logger
	var logErr error
	logger, logErr = logging.NewLogger(cfg.Log)
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", logErr)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync() // Flush buffered logs on exit
	}()

	sugar := logger.Sugar()
	sugar.Infow("Logger initialized",
		"level", cfg.Log.Level,
		"format", cfg.Log.Format,
	)
	sugar.Infow("GcodeLens starting",
		"version", version.Version,
		"input", *inputFile,
		"follow", *follow,
	)

	// Handle Graceful Shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		sugar.Infow("Received signal, initiating shutdown...", "signal", sig.String())
		cancel()
	}()

	// Serve Prometheus metrics while the run is in flight.
	if cfg.Metrics.ListenAddr != "" {
		go func() {
			if err := pipeline.ServeMetrics(ctx, cfg.Metrics.ListenAddr, logger.Named("metrics")); err != nil {
				sugar.Errorw("Metrics server stopped", "error", err)
			}
		}()
	}

	// Profile the input
	res, runErr := profileInput(ctx, cfg, logger)
	switch {
	case runErr == nil:
		sugar.Info("Profiling completed without error.")
	case errors.Is(runErr, context.Canceled):
		sugar.Info("Profiling cancelled (expected on shutdown).")
	default:
		sugar.Errorw("Profiling stopped unexpectedly", zap.Error(runErr))
		_ = logger.Sync()
		os.Exit(1)
	}
	if res == nil {
		sugar.Info("No result to report, shutting down.")
		return
	}

	// Profile the baseline, when one was requested
	var baseline *pipeline.Result
	if *compareFile != "" {
		sugar.Infow("Profiling baseline", "path", *compareFile)
		baseline, runErr = profileFile(ctx, cfg, *compareFile, logger.Named("baseline"))
		if runErr != nil {
			sugar.Errorw("Baseline profiling failed", zap.Error(runErr))
			_ = logger.Sync()
			os.Exit(1)
		}
	}

	// Write Reports
	manifestInput := *inputFile
	if *follow {
		manifestInput = ""
	}
	writer := report.NewWriter(cfg, logger.Named("report"))
	paths, err := writer.WriteAll(res, baseline, manifestInput)
	if err != nil {
		sugar.Errorw("Failed to write reports", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	for _, path := range paths {
		sugar.Infow("Report file", "path", path)
	}

	sugar.Info("GcodeLens finished.")
}

// profileInput runs the profiler over the configured source: a Kafka
// consumer in follow mode, the input file otherwise.
func profileInput(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pipeline.Result, error) {
	if *follow {
		source, err := pipeline.NewKafkaSource(cfg.Kafka, logger)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = source.Close()
		}()
		return pipeline.New(cfg, source, logger).Run(ctx)
	}
	return profileFile(ctx, cfg, *inputFile, logger)
}

func profileFile(ctx context.Context, cfg *config.Config, path string, logger *zap.Logger) (*pipeline.Result, error) {
	source, err := pipeline.NewFileSource(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = source.Close()
	}()
	return pipeline.New(cfg, source, logger).Run(ctx)
}
