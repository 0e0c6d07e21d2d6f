package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/envoyage/envoyage/internal/adminapi"
	"github.com/envoyage/envoyage/internal/bootstrap"
	"github.com/envoyage/envoyage/internal/breaker"
	"github.com/envoyage/envoyage/internal/broadcast"
	"github.com/envoyage/envoyage/internal/config"
	"github.com/envoyage/envoyage/internal/docker"
	"github.com/envoyage/envoyage/internal/filters"
	"github.com/envoyage/envoyage/internal/materializer"
	"github.com/envoyage/envoyage/internal/store"
	"github.com/envoyage/envoyage/internal/tracing"
	"github.com/envoyage/envoyage/internal/version"
	"github.com/envoyage/envoyage/internal/xds"
)

func newServeCommand() *cobra.Command {
	var (
		xdsAddr      string
		apiAddr      string
		seedPath     string
		seedDocker   bool
		otlpEndpoint string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the xDS server and management API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), xdsAddr, apiAddr, seedPath, seedDocker, otlpEndpoint)
		},
	}

	cmd.Flags().StringVar(&xdsAddr, "xds-addr", "", "xDS gRPC listen address (overrides ENVOYAGE_XDS_ADDR)")
	cmd.Flags().StringVar(&apiAddr, "api-addr", "", "management HTTP listen address (overrides ENVOYAGE_API_ADDR)")
	cmd.Flags().StringVar(&seedPath, "seed", "", "path to a JSON seed file (overrides ENVOYAGE_SEED_PATH)")
	cmd.Flags().BoolVar(&seedDocker, "seed-docker", false, "seed clusters/routes from locally running labeled containers")
	cmd.Flags().StringVar(&otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP trace collector endpoint (enables tracing export)")

	return cmd
}

func runServe(ctx context.Context, xdsAddr, apiAddr, seedPath string, seedDocker bool, otlpEndpoint string) error {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if xdsAddr != "" {
		cfg.XDSAddr = xdsAddr
	}
	if apiAddr != "" {
		cfg.APIAddr = apiAddr
	}
	if seedPath != "" {
		cfg.SeedPath = seedPath
	}
	log.Info("config loaded", "xds_addr", cfg.XDSAddr, "api_addr", cfg.APIAddr)

	shutdownTracing, err := tracing.Setup("envoyage", otlpEndpoint)
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()

	st := store.New(cfg, log)
	store.RegisterMetrics(promRegistry, st)

	filterRegistry := filters.NewRegistry(cfg)
	tracker := version.NewTracker()
	bcast := broadcast.New()
	cb := breaker.New(cfg.Breaker.FailureThreshold, cfg.Breaker.RecoveryTimeout)
	breaker.RegisterMetrics(promRegistry, cb)
	mat := materializer.New(st, cfg, filterRegistry, log)
	xdsMetrics := xds.NewMetrics(promRegistry)

	if err := bootstrap.LoadFile(cfg.SeedPath, st, log); err != nil {
		return err
	}
	if seedDocker {
		seeder, err := docker.NewSeeder(log)
		if err != nil {
			log.Warn("docker seeding unavailable", "error", err)
		} else if err := seeder.Seed(ctx, st); err != nil {
			log.Warn("docker seeding failed", "error", err)
		}
	}

	xdsServer := xds.NewServer(mat, tracker, bcast, cb, xdsMetrics, log)
	api := adminapi.New(st, filterRegistry, tracker, bcast, log)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("received shutdown signal")
		cancel()
	}()

	mux := http.NewServeMux()
	mux.Handle("/", api.Handler())
	mux.Handle("/metrics", xds.Handler(promRegistry))

	httpServer := &http.Server{Addr: cfg.APIAddr, Handler: mux}
	go func() {
		log.Info("management API listening", "addr", cfg.APIAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("management API failed", "error", err)
		}
	}()
	go func() {
		<-runCtx.Done()
		_ = httpServer.Close()
		_ = shutdownTracing(context.Background())
	}()

	if err := xdsServer.Serve(runCtx, cfg.XDSAddr); err != nil {
		log.Error("xDS server failed", "error", err)
		return err
	}
	return nil
}
