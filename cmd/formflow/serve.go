package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/formflow/internal/config"
	"github.com/alfredjeanlab/formflow/internal/events"
	"github.com/alfredjeanlab/formflow/internal/gateway"
	"github.com/alfredjeanlab/formflow/internal/server"
	"github.com/alfredjeanlab/formflow/internal/store"
	"github.com/alfredjeanlab/formflow/internal/store/memory"
	"github.com/alfredjeanlab/formflow/internal/store/postgres"
	"github.com/alfredjeanlab/formflow/internal/store/sqlite"
	formsync "github.com/alfredjeanlab/formflow/internal/sync"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the formflow server",
	GroupID: "system",
	// Override PersistentPreRunE so we don't build an API client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		logger.Info("store opened", "backend", cfg.Store)

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				st.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (FORMFLOW_NATS_URL not set)")
		}

		broadcaster := gateway.New(gateway.Config{
			Retention:      cfg.PendingRetention,
			OutboundBuffer: cfg.OutboundBuffer,
			Logger:         logger,
		})
		if cfg.SweepInterval > 0 {
			broadcaster.StartSweeper(cfg.SweepInterval)
		}

		formsServer := server.NewFormsServer(st, broadcaster, publisher)
		authn := server.NewAuthenticator(cfg.AuthTokens)
		if len(cfg.AuthTokens) == 0 {
			logger.Warn("no auth tokens configured; trusting " + server.CallerHeader + " header")
		}

		grpcServer, health := server.NewGRPCServer()
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			broadcaster.Stop()
			publisher.Close()
			st.Close()
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           formsServer.NewHTTPHandler(authn),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		var scheduler *formsync.Scheduler
		if cfg.SyncInterval > 0 && cfg.SyncS3Bucket != "" {
			dest, err := formsync.NewS3Destination(context.Background(), formsync.S3Config{
				Bucket:   cfg.SyncS3Bucket,
				Key:      cfg.SyncS3Key,
				Region:   cfg.SyncS3Region,
				Endpoint: cfg.SyncS3Endpoint,
				History:  cfg.SyncS3History,
			})
			if err != nil {
				logger.Error("failed to create S3 sync destination", "err", err)
			} else {
				scheduler = formsync.NewScheduler(st, []formsync.Destination{dest}, cfg.SyncInterval, logger)
				scheduler.Start()
				logger.Info("sync scheduler started", "interval", cfg.SyncInterval, "bucket", cfg.SyncS3Bucket, "key", cfg.SyncS3Key)
			}
		}

		logger.Info("formflow server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
			"pending_retention", cfg.PendingRetention,
		)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Report NOT_SERVING before draining so load balancers stop routing.
		health.Shutdown()

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		// Closes every websocket; hijacked connections are not drained by
		// http.Server.Shutdown.
		broadcaster.Stop()
		logger.Info("gateway stopped")

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// openStore returns the configured form store.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StorePostgres:
		s, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
