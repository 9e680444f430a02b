package report

import "errors"

var (
	// ErrCreatingOutputDir indicates the report output directory could not
	// be created.
	ErrCreatingOutputDir = errors.New("failed to create report output directory")

	// ErrWritingReport indicates a report file could not be written.
	ErrWritingReport = errors.New("failed to write report file")

	// ErrRenderingDashboard indicates the HTML dashboard could not be
	// rendered.
	ErrRenderingDashboard = errors.New("failed to render dashboard")

	// ErrHashingFile indicates a file could not be read while computing
	// manifest digests.
	ErrHashingFile = errors.New("failed to hash file for manifest")
)
