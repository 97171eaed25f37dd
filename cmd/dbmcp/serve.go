package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/dbmcp/logging"
	"github.com/jonwraymond/dbmcp/server"
)

// shutdownGrace is added to the disconnect timeout when bounding shutdown.
const shutdownGrace = 5 * time.Second

func newServeCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect the configured databases and serve MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, f)
		},
	}
}

func runServe(cmd *cobra.Command, f *flags) error {
	cfg, err := f.loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.NewProduction(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := server.New(cfg, server.WithLogger(logger), server.WithLookupEnv(f.lookupEnv))
	if err != nil {
		return err
	}
	for _, w := range s.Filter().Warnings() {
		logger.Warnf("tool filter: %s", w)
	}
	if err := s.RegisterConfigured(ctx); err != nil {
		return fmt.Errorf("register databases: %w", err)
	}
	logStartup(logger, s)

	serveErr := s.Start(ctx)
	if serveErr != nil {
		logger.Errorf("serve: %v", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Disconnect+shutdownGrace)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("shutdown: %v", err)
	}
	return serveErr
}

// logStartup records the resolved filter terms and one line per connected
// adapter at debug level.
func logStartup(logger *logging.Zap, s *server.Server) {
	rules := s.Filter().Rules()
	for _, t := range rules.Allow {
		logger.Debugf("tool filter allows %s", t.Raw)
	}
	for _, t := range rules.Deny {
		logger.Debugf("tool filter denies %s", t.Raw)
	}
	for _, a := range s.Adapters() {
		logger.With("adapter", a.ID).Debugf("%s %s connected=%t", a.Name, a.Version, a.Connected)
	}
}
