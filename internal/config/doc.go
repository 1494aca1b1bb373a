// Package config loads the pipeline configuration.
//
// Values come from three sources, later ones overriding earlier ones:
//
//	1. Built-in defaults (Default)
//	2. A YAML file, given with --config or GPS_CONFIG
//	3. Environment variables prefixed with GPS_
//
// Environment variable names follow the struct layout:
//
//	GPS_DATA_DIR=data
//	GPS_DATA_FILE=practices.arrow
//	GPS_DATA_FORMAT=parquet
//	GPS_LOGGING_LEVEL=debug
//	GPS_TELEMETRY_METRICS_FILE=metrics/gpsummary.prom
//
// A YAML file uses the same structure:
//
//	data:
//	  dir: /srv/gp
//	  file: practices.xlsx
//	  sheet: Practices
//	logging:
//	  level: debug
//	  format: text
//
// The result is validated with struct tags; a failure is a CONFIG app error
// listing each offending field.
package config
