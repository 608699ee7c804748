package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ducminhle1904/prop-challenge-engine/internal/backtest"
	"github.com/ducminhle1904/prop-challenge-engine/internal/logger"
	"github.com/ducminhle1904/prop-challenge-engine/internal/monitoring"
	"github.com/ducminhle1904/prop-challenge-engine/internal/state"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/config"
	"github.com/ducminhle1904/prop-challenge-engine/pkg/reporting"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	btOverrides   config.Overrides
	btMetricsAddr string
	btServe       bool
	btStateFile   string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay signals through the challenge rules",
	Long: `Replay a bar file and a signal file through the risk manager and the
strategy arbiter, then write the trade log, equity curve and summary.

With --metrics-addr the run exports Prometheus metrics on /metrics and a
challenge health probe on /health. Add --serve to keep serving after the
replay until interrupted.`,
	RunE: runBacktest,
}

func init() {
	f := backtestCmd.Flags()
	f.StringVar(&btOverrides.DataFile, "data", "", "OHLCV bar CSV file")
	f.StringVar(&btOverrides.SignalsFile, "signals", "", "Signal CSV file")
	f.Float64Var(&btOverrides.InitialEquity, "equity", 0, "Override initial equity")
	f.Float64Var(&btOverrides.RiskFraction, "risk", 0, "Override base risk fraction")
	f.StringVarP(&btOverrides.OutputDir, "output", "o", "", "Output directory for reports")
	f.StringVar(&btMetricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address")
	f.BoolVar(&btServe, "serve", false, "Keep the metrics server running after the replay")
	f.StringVar(&btStateFile, "state", "", "Write the final state snapshot to this file")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(btOverrides)
	if err != nil {
		return err
	}
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = reporting.DefaultOutputDir(cfg.Name, time.Now())
	}

	runID := uuid.NewString()
	log, err := newRunLogger(cfg.Run.LogDir, cfg.Name)
	if err != nil {
		return err
	}
	defer log.Close()
	log.Info("run %s starting", runID)

	bars, signals, err := loadInputs(cfg, log)
	if err != nil {
		monitoring.RecordError("data")
		return err
	}
	setup, err := cfg.Setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := monitoring.NewHealthChecker()
	recorder := monitoring.NewRecorder(health)
	addr := btMetricsAddr
	if addr == "" {
		addr = getEnvWithDefault(envMetricsAddr, cfg.Run.MetricsAddr)
	}
	if addr != "" {
		srv := startMetricsServer(addr, health, log)
		defer shutdownServer(srv, log)
	}

	engine, err := setup.NewEngine(backtest.NewScheduledSignals(signals), log, recorder, recorder)
	if err != nil {
		return err
	}
	results := engine.Run(bars)
	log.Status("run %s finished: %s", runID, results.Challenge.Status)

	written, err := reporting.NewReportingManager(cfg.Reporting()).ReportResults(cmd.OutOrStdout(), results)
	if err != nil {
		monitoring.RecordError("report")
		return err
	}
	for _, path := range written {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	}

	statePath := btStateFile
	if statePath == "" {
		statePath = getEnvWithDefault(envStateFile, cfg.Run.StateFile)
	}
	if statePath != "" {
		store, err := state.NewFileStore(statePath)
		if err != nil {
			return err
		}
		if err := store.Save(state.Capture(engine.Portfolio(), runID)); err != nil {
			monitoring.RecordError("state")
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved state to %s\n", store.Path())
	}

	if addr != "" && btServe {
		fmt.Fprintf(cmd.OutOrStdout(), "serving metrics on %s, press Ctrl+C to stop\n", addr)
		<-ctx.Done()
	}
	return nil
}

func startMetricsServer(addr string, health *monitoring.HealthChecker, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	mux.Handle("/health", health)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogError("metrics server", err)
		}
	}()
	log.Info("metrics server listening on %s", addr)
	return srv
}

func shutdownServer(srv *http.Server, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.LogError("metrics server shutdown", err)
	}
}
