// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jontk/reservation-protocol/internal/dedupe"
	"github.com/jontk/reservation-protocol/internal/diagnostics"
	"github.com/jontk/reservation-protocol/internal/dispatch"
	"github.com/jontk/reservation-protocol/internal/monitor"
	"github.com/jontk/reservation-protocol/internal/schedule"
	"github.com/jontk/reservation-protocol/internal/server"
	"github.com/jontk/reservation-protocol/internal/wsbridge"
	"github.com/jontk/reservation-protocol/pkg/config"
	"github.com/jontk/reservation-protocol/pkg/logging"
	"github.com/jontk/reservation-protocol/pkg/metrics"
)

var (
	Version = "dev"

	port        int
	semantics   string
	lossProb    float64
	inLossProb  float64
	facilities  []string
	httpAddr    string
	wsEnabled   bool
	debugOutput bool

	rootCmd = &cobra.Command{
		Use:     "reservation-server",
		Short:   "UDP facility reservation server",
		Version: Version,
		RunE:    run,
	}
)

func init() {
	cfg := config.NewServerDefault()
	rootCmd.Flags().IntVar(&port, "port", cfg.Port, "UDP port to listen on (env: RESERVATION_SERVER_PORT)")
	rootCmd.Flags().StringVar(&semantics, "semantics", string(cfg.Semantics), "invocation semantics: at-most-once or at-least-once (env: RESERVATION_SEMANTICS)")
	rootCmd.Flags().Float64Var(&lossProb, "loss-probability", cfg.LossProbability, "probability of simulated outbound datagram loss (env: RESERVATION_LOSS_PROBABILITY)")
	rootCmd.Flags().Float64Var(&inLossProb, "inbound-loss-probability", cfg.InboundLossProbability, "probability of simulated inbound datagram loss (env: RESERVATION_INBOUND_LOSS_PROBABILITY)")
	rootCmd.Flags().StringSliceVar(&facilities, "facilities", cfg.Facilities, "facility names the server accepts requests for")
	rootCmd.Flags().StringVar(&httpAddr, "http-addr", "", "address for the read-only HTTP diagnostics surface (empty disables it)")
	rootCmd.Flags().BoolVar(&wsEnabled, "ws-dashboard", false, "mirror monitor broadcasts onto a WebSocket endpoint at /dashboard on http-addr")
	rootCmd.Flags().BoolVar(&debugOutput, "debug", false, "enable debug-level logging")
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.NewServerDefault()
	cfg.Load()
	cfg.Port = port
	cfg.Semantics = config.Semantics(semantics)
	cfg.LossProbability = lossProb
	cfg.InboundLossProbability = inLossProb
	cfg.Facilities = facilities

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logLevel := slog.LevelInfo
	if debugOutput {
		logLevel = slog.LevelDebug
	}
	logger := logging.NewLogger(&logging.Config{Level: logLevel, Format: logging.FormatText, Output: os.Stdout, Version: Version})

	store := schedule.New(cfg.Facilities)
	cache := dedupe.New(cfg.DuplicateCacheCapacity, cfg.DuplicateCacheMaxAge)
	registry := monitor.New()
	collector := metrics.NewInMemoryCollector()

	consultCache := cfg.Semantics == config.AtMostOnce
	d := dispatch.New(store, cache, registry, collector, logger, consultCache)

	if httpAddr != "" {
		diag := diagnostics.New(httpAddr, store, registry, collector)
		go func() {
			if err := diag.Run(); err != nil {
				logger.Error("diagnostics server stopped", "error", err.Error())
			}
		}()
		defer diag.Close()

		if wsEnabled {
			hub := wsbridge.NewHub()
			d.SetBroadcastSink(hub)
			diag.HandleFunc("/dashboard", hub.HandleWebSocket)
			logger.Info("websocket dashboard mirror enabled", "path", "/dashboard")
		}
	}

	srv := server.New(cfg, d, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		srv.Close()
	}()

	return srv.Run()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
