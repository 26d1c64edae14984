package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc/reflection"

	grpcctx "github.com/dtroode/authlib-server/internal/api/grpc/context"
	"github.com/dtroode/authlib-server/internal/api/grpc/router"
	grpcServer "github.com/dtroode/authlib-server/internal/api/grpc/server"
	"github.com/dtroode/authlib-server/internal/app"
	"github.com/dtroode/authlib-server/internal/config"
	"github.com/dtroode/authlib-server/internal/logger"
	"github.com/dtroode/authlib-server/internal/metrics"
	"github.com/dtroode/authlib-server/internal/model"
	"github.com/dtroode/authlib-server/internal/server"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	deps, err := app.Build(ctx, cfg, m, logger)
	if err != nil {
		logger.Fatal("failed to initialize services", "error", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error("failed to close backends", "error", err)
		}
	}()

	if err := deps.Pruner.Start(cfg.Ledger.PruneSchedule); err != nil {
		logger.Fatal("failed to schedule ledger pruning", "error", err)
	}

	var sl model.SecurityLayer
	if cfg.GRPC.EnableHTTPS {
		sl, err = server.NewTLSListener(cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName)
		if err != nil {
			logger.Fatal("failed to initialize TLS", "error", err)
		}
	} else {
		logger.Warn("TLS disabled, credentials travel in clear text")
		sl = server.NewPlainListener()
	}

	r := router.New(deps.Auth, deps.Accounts, deps.Auth, grpcctx.NewManager(), logger)
	gs := r.Register()
	reflection.Register(gs)
	grpcSrv := grpcServer.NewGRPCServer(gs, fmt.Sprintf(":%s", cfg.GRPC.Port))

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}(grpcSrv)

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(registry))
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("Starting metrics endpoint on", "address", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("failed to start metrics endpoint", "error", err)
			}
		}()
	}

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := grpcSrv.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", grpcSrv.Address())
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during metrics shutdown", "error", err)
		}
	}
	if err := deps.Pruner.Stop(shutdownCtx); err != nil {
		logger.Error("error while waiting for ledger pruning", "error", err)
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
