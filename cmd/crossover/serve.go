package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/crossover/internal/api"
	handler "github.com/newthinker/crossover/internal/api/handler/api"
	"github.com/newthinker/crossover/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the crossover API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize logger
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	reports, err := buildReports(cfg)
	if err != nil {
		return err
	}

	notifiers, err := buildNotifiers(cfg)
	if err != nil {
		return err
	}

	deps := api.Dependencies{
		Sources: buildSources(cfg, log, reg),
		Defaults: handler.Defaults{
			Source:     cfg.Backtest.Source,
			FastWindow: cfg.Backtest.FastWindow,
			SlowWindow: cfg.Backtest.SlowWindow,
		},
		Reports:   reports,
		Notifiers: notifiers,
		Alerts:    cfg.Alerts.Rules,
		Metrics:   reg,
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	log.Info("starting crossover server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("archive", reports != nil),
		zap.Bool("notifications", notifiers != nil),
	)

	// Create API server
	server, err := api.NewServer(api.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		APIKey:      cfg.Server.APIKey,
		MaxJobs:     cfg.Server.MaxJobs,
		JobTTL:      time.Duration(cfg.Server.JobTTLHours) * time.Hour,
		JobTimeout:  cfg.Server.JobTimeout,
		MetricsPath: metricsPath,
	}, deps, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	// Wait for shutdown signal or a failed listener
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("shutting down crossover server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
