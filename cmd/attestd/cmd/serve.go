package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/attestd/attestd/internal/config"
	"github.com/attestd/attestd/internal/logging"
	"github.com/attestd/attestd/internal/orchestrator"
	"github.com/attestd/attestd/internal/transport/httpapi"
)

func newServeCmd() *cobra.Command {
	cfg := config.Default()
	// BINDIR from the environment replaces the built-in default; --bindir
	// overrides both.
	if dir := os.Getenv("BINDIR"); dir != "" {
		cfg.BinDir = dir
	}
	var logLevel string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the attestation server",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			return runServe(cfg, level)
		},
	}

	cmd.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "address the attestation endpoint listens on")
	cmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-listen", cfg.MetricsAddr, "address the /metrics endpoint listens on")
	cmd.Flags().StringVar(&cfg.BinDir, "bindir", cfg.BinDir, "directory containing the external policy verifier")
	cmd.Flags().StringVar(&cfg.PolicyVerifierName, "policy-verifier", cfg.PolicyVerifierName, "filename of the policy verifier within bindir")
	cmd.Flags().Int64Var(&cfg.MaxRequestBytes, "max-request-bytes", cfg.MaxRequestBytes, "maximum total request body size")
	cmd.Flags().Int64Var(&cfg.MaxPartBytes, "max-part-bytes", cfg.MaxPartBytes, "maximum size of a single multipart part")
	cmd.Flags().BoolVar(&cfg.RequireEventLog, "require-eventlog", cfg.RequireEventLog, "reject requests that omit the event log")
	cmd.Flags().BoolVar(&cfg.AllowSHA1, "allow-sha1", cfg.AllowSHA1, "permit SHA-1 PCR banks")
	cmd.Flags().DurationVar(&cfg.PolicyTimeout, "policy-timeout", cfg.PolicyTimeout, "timeout for the external policy verifier")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}

func runServe(cfg config.Config, level logrus.Level) error {
	log := logging.New(level)
	log.WithFields(logrus.Fields{
		"listen":         cfg.ListenAddr,
		"metrics_listen": cfg.MetricsAddr,
		"bindir":         cfg.BinDir,
	}).Info("starting attestd")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	orch := orchestrator.New(orchestrator.Options{
		WorkspaceBaseDir: "",
		PolicyBinPath:    filepath.Join(cfg.BinDir, cfg.PolicyVerifierName),
		PolicyTimeout:    cfg.PolicyTimeout,
		AllowSHA1:        cfg.AllowSHA1,
		RequireEventLog:  cfg.RequireEventLog,
		Log:              log,
	})

	attestHandler := httpapi.New(orch, log, cfg.MaxRequestBytes, cfg.MaxPartBytes)
	metricsHandler := httpapi.NewMetricsServer(promhttp.Handler())

	attestSrv := &http.Server{Addr: cfg.ListenAddr, Handler: attestHandler}
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsHandler}

	errCh := make(chan error, 2)
	go func() { errCh <- attestSrv.ListenAndServe() }()
	go func() { errCh <- metricsSrv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = attestSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	log.Info("attestd stopped")
	return nil
}
