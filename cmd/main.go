/*
Package main is the entry point for the rtcsignal WebRTC signaling relay.

It loads configuration, initializes logging and metrics, builds the signaling Manager
and HTTP router, and shuts everything down in order on SIGINT or SIGTERM.
*/
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"rtcsignal/internal/app/signaling"
	"rtcsignal/internal/configs"
	"rtcsignal/internal/handler"
	"rtcsignal/internal/pkg/logx"
	"rtcsignal/internal/pkg/metrics"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(logx.Options{
		Development:    cfg.IsDevelopment(),
		File:           cfg.LogFile,
		FileMaxSizeMB:  100,
		FileMaxBackups: 5,
	})
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("implicit_leave_on_disconnect", cfg.ImplicitLeaveOnDisconnect).
		Int("ice_servers", len(cfg.ICEServers)).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	manager := signaling.NewManager(signaling.Options{
		ImplicitLeaveOnDisconnect: cfg.ImplicitLeaveOnDisconnect,
		MaxUsernameLength:         cfg.MaxUsernameLength,
		ICEServers:                cfg.ICEServers,
	}, m)

	limiters := handler.NewLimiters()
	defer limiters.Stop()

	router := handler.Router(&handler.AppDeps{
		Manager: manager,
		Config:  cfg,
		Metrics: m,
	}, limiters)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Signaling relay starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	// Hijacked WebSocket connections are not tracked by http.Server.
	manager.Shutdown()

	logx.Info("Server gracefully stopped.")
}
