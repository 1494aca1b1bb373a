// Command gpsummary loads the GP practice dataset and derives the staffing,
// patient ratio and age summary columns.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gpsummary/internal/config"
	"gpsummary/internal/infrastructure"
	"gpsummary/internal/pipeline"
	"gpsummary/pkg/contracts"
)

const shutdownTimeout = 5 * time.Second

type options struct {
	configPath string
	dataDir    string
	dataFile   string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "gpsummary",
		Short: "Derive summary columns for GP practices",
		Long: `gpsummary reads the GP practice dataset (Arrow IPC, Parquet, CSV or XLSX),
drops incomplete practices and derives staff totals, patients per staff,
patient proportions and an approximate mean patient age.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		Version:      contracts.Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	flags := root.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file (default $"+config.ConfigFileEnv+")")
	flags.StringVar(&opts.dataDir, "data-dir", "", "directory holding the dataset")
	flags.StringVar(&opts.dataFile, "data-file", "", "dataset file name")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), contracts.FullVersionString())
		},
	}
}

func run(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	previous := slog.Default()
	slog.SetDefault(logger.Logger)

	tel, err := infrastructure.InitializeTelemetry(ctx, cfg.Telemetry, contracts.Version, logger.Logger)
	if err != nil {
		closeLogger(logger, previous)
		return err
	}
	// The log file stays open until telemetry shutdown has been logged.
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.ErrorContext(shutdownCtx, "Telemetry shutdown failed", slog.String("error", err.Error()))
		}
		closeLogger(logger, previous)
	}()

	runner, err := pipeline.NewRunnerFromConfig(cfg,
		pipeline.WithLogger(logger.Logger),
		pipeline.WithTelemetry(tel))
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	result.Release()
	return nil
}

// closeLogger restores the previous default logger, then closes the log
// file.
func closeLogger(logger *infrastructure.Logger, previous *slog.Logger) {
	slog.SetDefault(previous)
	if err := logger.Close(); err != nil {
		previous.Warn("Failed to close log file", slog.String("error", err.Error()))
	}
}

// loadConfig reads the configuration and applies the command-line flags,
// which take precedence over every other source.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(config.ResolvePath(opts.configPath))
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	// The location is checked by the loader, which names the faulty argument.
	if flags.Changed("data-dir") {
		cfg.Data.Dir = opts.dataDir
	}
	if flags.Changed("data-file") {
		cfg.Data.File = opts.dataFile
	}
	return cfg, nil
}
