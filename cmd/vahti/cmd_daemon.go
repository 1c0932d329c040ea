package main

import (
	"context"
	"fmt"
	"net/http"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/yairfalse/vahti/telemetry"
)

var daemonOTELEndpoint string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scheduler daemon",
	Long: `Run Vahti in daemon mode.

The daemon keeps the cron registry live, sweeps every account for
orphaned resources on the configured interval, refreshes rightsizing
recommendations, and continuously heals the registry against the store.

Features:
- Persisted schedules fire on their cron expressions
- Daily orphan scan with reconciliation per owner
- Registry self-healing every minute
- Prometheus metrics on /metrics
- Graceful shutdown on SIGTERM/SIGINT`,
	Example: `  vahti daemon                          # Run with defaults
  vahti daemon --config /etc/vahti.yaml # Explicit config
  vahti daemon --otel-endpoint otel:4317`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().StringVar(&daemonOTELEndpoint, "otel-endpoint", "", "OTLP gRPC endpoint for traces and metrics")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	shutdownOTEL, err := telemetry.InitOTEL(ctx, telemetry.Config{
		ServiceName:    "vahti",
		ServiceVersion: version,
		OTELEndpoint:   daemonOTELEndpoint,
		Insecure:       true,
	})
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = shutdownOTEL(shutdownCtx)
	}()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.Info().
		Str("region", a.cfg.Region).
		Str("store", a.cfg.StoreDir).
		Str("metrics", a.cfg.MetricsAddr).
		Msg("daemon starting")

	var group run.Group
	group.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

	addSweep(&group, ctx, a, "orphan", a.cfg.Sweeps.OrphanInterval, a.coordinator.OrphanSweep)
	addSweep(&group, ctx, a, "rightsizing", a.cfg.Sweeps.RightsizingInterval, a.coordinator.RightsizingSweep)
	addSweep(&group, ctx, a, "self-heal", a.cfg.Sweeps.SelfHealInterval, a.coordinator.SelfHealSweep)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(telemetry.PrometheusRegistry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	server := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux}
	group.Add(
		func() error {
			return server.ListenAndServe()
		},
		func(error) {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = server.Shutdown(shutdownCtx)
		},
	)

	err = group.Run()
	if _, isSignal := err.(run.SignalError); isSignal {
		a.logger.Info().Msg("daemon shutting down")
		return nil
	}
	return err
}

// addSweep registers one sweep loop as a run group actor
func addSweep(group *run.Group, ctx context.Context, a *app, name string, interval time.Duration, sweep func(context.Context) error) {
	sweepCtx, sweepCancel := context.WithCancel(ctx)
	group.Add(
		func() error {
			return a.coordinator.RunSweepLoop(sweepCtx, name, interval, sweep)
		},
		func(error) {
			sweepCancel()
		},
	)
}
