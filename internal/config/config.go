package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Boundary strategy names accepted by profile.boundaryStrategy.
const (
	BoundaryZIncrease = "z-increase"
	BoundaryMarker    = "marker"
)

const (
	defaultFilamentDiameterMM  = 1.75
	defaultFilamentDensityGCM3 = 1.24
	defaultZEpsilonMM          = 1e-6
	defaultReportOutputDir     = "."
	defaultReportBins          = 10
	defaultReportTopN          = 10
	defaultStatusEveryLines    = 250_000
	defaultKafkaGroupID        = "gcodelens-default-group"
	defaultLogLevel            = "info"
	defaultLogFormat           = "console"
	defaultLogFileEnabled      = false
	defaultLogDirectory        = "log"
	defaultLogFilename         = "app.log"
	defaultLogMaxSizeMB        = 100
	defaultLogMaxBackups       = 3
	defaultLogMaxAgeDays       = 7
	defaultLogCompress         = false

	// Environment variable prefix
	envPrefix = "GCODELENS"
)

type Config struct {
	Profile ProfileConfig `mapstructure:"profile"`
	Limits  LimitsConfig  `mapstructure:"limits"`
	Report  ReportConfig  `mapstructure:"report"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Log     LogConfig     `mapstructure:"log"`

	// Slicer carries overrides loaded from a slicer-exported profile.
	// Attached by ApplySlicerProfile, never read from the YAML file.
	Slicer *SlicerProfile `mapstructure:"-"`
}

// ProfileConfig controls how the event stream is interpreted.
type ProfileConfig struct {
	FilamentDiameterMM  float64 `mapstructure:"filamentDiameterMM"`
	FilamentDensityGCM3 float64 `mapstructure:"filamentDensityGCM3"`
	ZEpsilonMM          float64 `mapstructure:"zEpsilonMM"`
	BoundaryStrategy    string  `mapstructure:"boundaryStrategy"`
	KeepEvents          bool    `mapstructure:"keepEvents"`
}

// LimitsConfig holds optional machine limits; nil means unset and disables
// the corresponding exceedance and headroom outputs.
type LimitsConfig struct {
	MaxFlowMM3PerS   *float64 `mapstructure:"maxFlowMM3PerS"`
	MaxSpeedMMPerS   *float64 `mapstructure:"maxSpeedMMPerS"`
	MinLayerHeightMM *float64 `mapstructure:"minLayerHeightMM"`
	MaxLayerHeightMM *float64 `mapstructure:"maxLayerHeightMM"`
}

type ReportConfig struct {
	OutputDir string `mapstructure:"outputDir"`
	Bins      int    `mapstructure:"bins"`
	TopN      int    `mapstructure:"topN"`
	CSV       bool   `mapstructure:"csv"`
	JSON      bool   `mapstructure:"json"`
	HTML      bool   `mapstructure:"html"`
}

type MetricsConfig struct {
	ListenAddr       string `mapstructure:"listenAddr"`
	StatusEveryLines int    `mapstructure:"statusEveryLines"`
}

// KafkaConfig is consumed only in follow mode; it is validated where the
// consumer is built, not here, so batch runs need no Kafka settings.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"groupID"`
}

type LogConfig struct {
	Level              string `mapstructure:"level"`
	Format             string `mapstructure:"format"`
	FileLoggingEnabled bool   `mapstructure:"fileLoggingEnabled"`
	Directory          string `mapstructure:"directory"`
	Filename           string `mapstructure:"filename"`
	MaxSize            int    `mapstructure:"maxSize"`    // Max size in MB
	MaxBackups         int    `mapstructure:"maxBackups"` // Max backup files
	MaxAge             int    `mapstructure:"maxAge"`     // Max days to retain
	Compress           bool   `mapstructure:"compress"`   // Compress rotated files?
}

// Load initializes viper, reads config, applies defaults, unmarshals, and
// validates. An empty configPath runs on defaults and environment
// overrides alone; a path that does not exist is an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	configureViper(v, configPath)

	// Set default values before reading config source .yaml
	setDefaults(v)

	if configPath != "" {
		if err := readConfigFile(v); err != nil {
			return nil, err
		}
	}

	// Unmarshal the configuration
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshallingConfig, err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// configureViper sets up viper instance for file and environment variables.
func configureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults applies default configuration values using Viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("profile.filamentDiameterMM", defaultFilamentDiameterMM)
	v.SetDefault("profile.filamentDensityGCM3", defaultFilamentDensityGCM3)
	v.SetDefault("profile.zEpsilonMM", defaultZEpsilonMM)
	v.SetDefault("profile.boundaryStrategy", BoundaryZIncrease)
	v.SetDefault("profile.keepEvents", false)
	v.SetDefault("report.outputDir", defaultReportOutputDir)
	v.SetDefault("report.bins", defaultReportBins)
	v.SetDefault("report.topN", defaultReportTopN)
	v.SetDefault("report.csv", true)
	v.SetDefault("report.json", true)
	v.SetDefault("report.html", true)
	v.SetDefault("metrics.statusEveryLines", defaultStatusEveryLines)
	v.SetDefault("kafka.groupID", defaultKafkaGroupID)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("log.fileLoggingEnabled", defaultLogFileEnabled)
	v.SetDefault("log.directory", defaultLogDirectory)
	v.SetDefault("log.filename", defaultLogFilename)
	v.SetDefault("log.maxSize", defaultLogMaxSizeMB)
	v.SetDefault("log.maxBackups", defaultLogMaxBackups)
	v.SetDefault("log.maxAge", defaultLogMaxAgeDays)
	v.SetDefault("log.compress", defaultLogCompress)
}

// readConfigFile attempts to read the configuration file specified in viper.
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return ErrConfigFileMissing
		}
		return fmt.Errorf("%w: %w", ErrReadingConfigFile, err)
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.Profile.FilamentDiameterMM <= 0 {
		return ErrInvalidFilamentDiameter
	}
	if cfg.Profile.FilamentDensityGCM3 <= 0 {
		return ErrInvalidFilamentDensity
	}
	if cfg.Profile.ZEpsilonMM < 0 {
		return ErrNegativeZEpsilon
	}
	if cfg.Profile.BoundaryStrategy != BoundaryZIncrease && cfg.Profile.BoundaryStrategy != BoundaryMarker {
		return ErrUnknownBoundaryStrategy
	}
	if cfg.Report.Bins < 1 {
		return ErrInvalidReportBins
	}
	if cfg.Report.TopN < 0 {
		return ErrNegativeReportTopN
	}
	if cfg.Metrics.StatusEveryLines < 0 {
		return ErrNegativeStatusInterval
	}
	return nil
}
