// Package main is the relaygate entry point.
//
// Adapted from go-core-stack-mcp-auth-proxy's main.go: config load, logger
// setup, server construction, signal-driven graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relaygate/relaygate/internal/config"
	"github.com/relaygate/relaygate/internal/controller"
	"github.com/relaygate/relaygate/internal/gatewaylog"
	"github.com/relaygate/relaygate/internal/metrics"
)

const gracefulShutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		gatewaylog.Error().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	gatewaylog.Configure(cfg.DebugMode)

	ctrl := controller.New(cfg)

	mux := http.NewServeMux()
	// /metrics and /healthz are gated ahead of the token-path grammar
	// (spec.md §6) so they can never collide with a token happening to be
	// named "metrics" or "healthz".
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", handleHealthz)
	mux.Handle("/", ctrl)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		gatewaylog.Info().Str("listen_addr", cfg.ListenAddr).Msg("starting relaygate")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			gatewaylog.Error().Err(err).Msg("server exited unexpectedly")
			os.Exit(1)
		}
	}()

	waitForShutdown(context.Background(), server)
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func waitForShutdown(ctx context.Context, srv *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	gatewaylog.Info().Msg("shutting down relaygate")

	shutdownCtx, cancel := context.WithTimeout(ctx, gracefulShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		gatewaylog.Error().Err(err).Msg("graceful shutdown failed; forcing close")
		if closeErr := srv.Close(); closeErr != nil {
			gatewaylog.Error().Err(closeErr).Msg("forced close failed")
		}
	}

	gatewaylog.Info().Msg("relaygate stopped")
}
