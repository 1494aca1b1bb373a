package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "gpsummary/internal/errors"
)

// EnvPrefix namespaces every environment variable, e.g. GPS_DATA_DIR.
const EnvPrefix = "GPS"

// ConfigFileEnv names the variable holding the configuration file path when
// none is given on the command line.
const ConfigFileEnv = EnvPrefix + "_CONFIG"

// Config represents the complete pipeline configuration
type Config struct {
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// DataConfig locates and describes the input dataset
type DataConfig struct {
	Dir  string `yaml:"dir" envconfig:"DIR"`
	File string `yaml:"file" envconfig:"FILE" validate:"required"`
	// Format forces the file format; empty means detect from the extension.
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"omitempty,oneof=arrow ipc feather parquet csv xlsx excel"`
	Sheet    string `yaml:"sheet" envconfig:"SHEET"`
	CSVChunk int    `yaml:"csv_chunk" envconfig:"CSV_CHUNK" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// TelemetryConfig controls tracing and metrics export
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	Tracing     bool   `yaml:"tracing" envconfig:"TRACING"`
	// TraceFile receives exported spans; empty means standard error.
	TraceFile string `yaml:"trace_file" envconfig:"TRACE_FILE"`
	Metrics   bool   `yaml:"metrics" envconfig:"METRICS"`
	// MetricsFile receives the metrics in Prometheus text format at shutdown.
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir:  "data",
			File: "practices.arrow",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/gpsummary.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "gpsummary",
			Metrics:     true,
		},
	}
}

// ResolvePath returns the configuration file to read: the explicit path if
// set, otherwise the GPS_CONFIG variable. An empty result means no file.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(ConfigFileEnv)
}

// Load builds the configuration from the defaults, the YAML file at path
// (skipped when path is empty) and GPS_* environment variables, in
// increasing order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays the YAML file at path onto c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewConfigError("config validation failed", err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s failed '%s' (value %q)", fe.Namespace(), fe.Tag(), fmt.Sprint(fe.Value())))
	}
	return apperrors.NewConfigError("config validation failed", err).
		WithContext("problems", strings.Join(problems, "; "))
}
