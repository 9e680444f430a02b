package config

import "errors"

var (
	ErrReadingConfigFile       = errors.New("failed to read config file")
	ErrUnmarshallingConfig     = errors.New("failed to unmarshal config")
	ErrConfigFileMissing       = errors.New("config file not found")
	ErrReadingSlicerProfile    = errors.New("failed to read slicer profile")
	ErrInvalidFilamentDiameter = errors.New("profile filamentDiameterMM must be positive")
	ErrInvalidFilamentDensity  = errors.New("profile filamentDensityGCM3 must be positive")
	ErrNegativeZEpsilon        = errors.New("profile zEpsilonMM cannot be negative")
	ErrUnknownBoundaryStrategy = errors.New("profile boundaryStrategy must be z-increase or marker")
	ErrInvalidReportBins       = errors.New("report bins must be at least 1")
	ErrNegativeReportTopN      = errors.New("report topN cannot be negative")
	ErrNegativeStatusInterval  = errors.New("metrics statusEveryLines cannot be negative")
)
