package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blackroad/gateway/pkg/config"
	"github.com/blackroad/gateway/pkg/contextstore"
	"github.com/blackroad/gateway/pkg/gatewayapi"
	"github.com/blackroad/gateway/pkg/journal"
	"github.com/blackroad/gateway/pkg/metrics"
	"github.com/blackroad/gateway/pkg/provider"
	"github.com/blackroad/gateway/pkg/ratelimit"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file (optional)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}

	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		logger.Error("failed to open journal", "error", err, "path", cfg.JournalPath)
		return 1
	}

	accessLog, err := gatewayapi.OpenAccessLogger(cfg.LogPath)
	if err != nil {
		logger.Error("failed to open access log", "error", err, "path", cfg.LogPath)
		return 1
	}
	defer accessLog.Close()

	deps := &gatewayapi.Deps{
		Config:    cfg,
		Providers: provider.DefaultRegistry(),
		Limiter:   ratelimit.New(),
		Metrics:   metrics.New(),
		Journal:   j,
		Context:   contextstore.New(cfg.ContextPath),
		AccessLog: accessLog,
		Logger:    logger,
		StartedAt: time.Now(),
		IPLimiter: gatewayapi.NewIPLimiter(20, 40),
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           gatewayapi.NewServer(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "addr", cfg.Addr())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			return 1
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
			return 1
		}
	}

	fmt.Fprintln(os.Stdout, "gateway stopped")
	return 0
}
