package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/gcodelens/gcodelens/internal/config"
	"github.com/gcodelens/gcodelens/internal/pipeline"
)

// Writer renders profiler results into the configured report files.
type Writer struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewWriter creates a report writer bound to the effective configuration.
func NewWriter(cfg *config.Config, logger *zap.Logger) *Writer {
	logger.Debug("Report writer created",
		zap.String("output_dir", cfg.Report.OutputDir),
		zap.Bool("csv", cfg.Report.CSV),
		zap.Bool("json", cfg.Report.JSON),
		zap.Bool("html", cfg.Report.HTML),
	)
	return &Writer{cfg: cfg, logger: logger}
}

// WriteAll condenses res (and baseline, when non-nil) and writes every
// enabled report file plus the manifest, which always comes last because
// it digests the others. inputPath feeds the manifest's input digest; pass
// "" for stream inputs. The returned paths include the manifest.
func (w *Writer) WriteAll(res, baseline *pipeline.Result, inputPath string) ([]string, error) {
	rep := Build(res, w.cfg)
	var cmp *Comparison
	if baseline != nil {
		cmp = Compare(rep, Build(baseline, w.cfg))
	}

	dir := w.cfg.Report.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreatingOutputDir, err)
	}

	now := time.Now()

	var written []string
	add := func(name string, render func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		if err := w.writeFile(path, render); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	if w.cfg.Report.CSV {
		if err := add(LayersCSVName, rep.writeLayersCSV); err != nil {
			return written, err
		}
		if err := add(CategoriesCSVName, rep.writeCategoriesCSV); err != nil {
			return written, err
		}
		if rep.Events != nil {
			if err := add(EventsCSVName, rep.writeEventsCSV); err != nil {
				return written, err
			}
		}
		if cmp != nil {
			if err := add(CompareCSVName, cmp.writeCSV); err != nil {
				return written, err
			}
		}
	}

	if w.cfg.Report.JSON {
		if err := add(SummaryJSONName, func(out io.Writer) error {
			return rep.writeSummaryJSON(out, inputPath, now, cmp)
		}); err != nil {
			return written, err
		}
	}

	if w.cfg.Report.HTML {
		if err := add(DashboardHTMLName, func(out io.Writer) error {
			return rep.writeDashboard(out, cmp)
		}); err != nil {
			return written, err
		}
	}

	manifest, err := buildManifest(inputPath, written, now)
	if err != nil {
		return written, err
	}
	if err := add(ManifestJSONName, manifest.write); err != nil {
		return written, err
	}

	w.logger.Sugar().Infow("Report written",
		"output_dir", dir,
		"files", len(written),
		"run_id", manifest.RunID,
	)
	return written, nil
}

func (w *Writer) writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWritingReport, err)
	}

	bw := bufio.NewWriter(f)
	if err := render(bw); err != nil {
		f.Close()
		return fmt.Errorf("%w: %w", ErrWritingReport, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("%w: %w", ErrWritingReport, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWritingReport, err)
	}

	w.logger.Sugar().Debugw("Report file written", "path", path)
	return nil
}
