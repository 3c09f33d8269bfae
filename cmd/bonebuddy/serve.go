package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/app"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/httpapi"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scheduling API and the credit drift audit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	handler := httpapi.NewHandler(rt.credits, rt.scheduler, rt.directory, rt.logger)
	server := httpapi.NewServer(httpapi.Options{
		JWTSecret:      rt.cfg.JWTSecret,
		RateLimitRPS:   rt.cfg.RateLimitRPS,
		RateLimitBurst: rt.cfg.RateLimitBurst,
	}, handler, rt.logger)

	jobs := app.NewScheduler(rt.credits, rt.cfg.DriftAuditInterval, rt.logger)
	jobs.Start(ctx)
	defer jobs.Stop()

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("Starting HTTP server", zap.String("addr", rt.cfg.HTTPAddr))
		errCh <- server.Start(rt.cfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			rt.logger.Error("HTTP server error", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	rt.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		rt.logger.Error("Server shutdown failed", zap.Error(err))
		return err
	}
	rt.logger.Info("Server stopped")
	return nil
}
