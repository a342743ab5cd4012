package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"novel-forge/backend/internal/grpcserver"
	"novel-forge/backend/pkg/di"
	"novel-forge/backend/pkg/router"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting application", "env", cfg.Server.Env, "db_driver", cfg.Database.Driver)

	container, err := di.New(ctx, cfg, log)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.LogError(err, "Failed to release resources")
		}
	}()

	container.Health.Start(ctx)

	r := router.New(container)
	r.SetupRoutes()
	go r.RateLimiter.Run(ctx)

	if cfg.Server.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
		if err != nil {
			log.LogError(err, "Failed to listen for gRPC", "port", cfg.Server.GRPCPort)
			return err
		}
		grpcSrv := grpcserver.New(container.Health, log)
		go grpcSrv.Run(ctx, 10*time.Second)
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				log.LogError(err, "gRPC server stopped")
			}
		}()
		defer grpcSrv.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.LogError(err, "Server failed to start")
			return err
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	log.Info("Server exited gracefully")
	return nil
}
