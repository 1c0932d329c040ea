package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yairfalse/vahti/config"
	"github.com/yairfalse/vahti/credentials"
	"github.com/yairfalse/vahti/executor"
	"github.com/yairfalse/vahti/journal"
	"github.com/yairfalse/vahti/lifecycle"
	"github.com/yairfalse/vahti/policy"
	"github.com/yairfalse/vahti/reconciler"
	"github.com/yairfalse/vahti/scanner"
	"github.com/yairfalse/vahti/store"
	"github.com/yairfalse/vahti/telemetry"
)

var (
	version    = "0.1.0"
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "vahti",
		Short: "Resource Lifecycle Scheduler",
		Long: `Vahti - Resource Lifecycle Scheduler

Vahti schedules recurring lifecycle actions against cloud resources
(shutdown, startup, resize, scale, terminate), scans accounts for
orphaned resources that only generate cost, and reclaims them under
policy control.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`Vahti {{.Version}} - Resource Lifecycle Scheduler
`)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cobra.OnInitialize(setupLogging)
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	cfg := config.Default()
	cfg.ApplyDefaults()
	return cfg, nil
}

// app bundles everything a command needs and knows how to shut it down
type app struct {
	cfg         *config.Config
	coordinator *lifecycle.Coordinator
	store       *store.Store
	journal     *journal.Journal
	logger      *telemetry.Logger
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.coordinator.Close(ctx); err != nil {
		a.logger.Error().Err(err).Msg("failed to stop coordinator")
	}
	if err := a.journal.Close(); err != nil {
		a.logger.Error().Err(err).Msg("failed to close journal")
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("failed to close store")
	}
}

// buildApp wires the app and rebuilds the registry from the store
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := telemetry.NewLogger("vahti")

	st, err := store.Open(cfg.StoreDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	jrnl, err := journal.Open(cfg.JournalDir)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	gate, err := policy.NewGate(ctx, logger)
	if err != nil {
		_ = jrnl.Close()
		_ = st.Close()
		return nil, err
	}

	metrics, err := lifecycle.NewMetrics()
	if err != nil {
		_ = jrnl.Close()
		_ = st.Close()
		return nil, err
	}

	coordinator := lifecycle.NewCoordinator(
		st,
		scanner.NewScanner(cfg.Scanner.StoppedAfterDays, logger),
		reconciler.NewReconciler(st, jrnl, logger),
		executor.NewExecutor(cfg.Executor.ResizeTimeout, cfg.Executor.PollInterval, jrnl, logger),
		credentials.NewProfileResolver(cfg.Region),
		gate,
		metrics,
		logger,
		lifecycle.AWSCloudFactory,
		cfg.Executor.ResizeTimeout+time.Minute,
	)

	a := &app{
		cfg:         cfg,
		coordinator: coordinator,
		store:       st,
		journal:     jrnl,
		logger:      logger,
	}

	if err := coordinator.Rebuild(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}
