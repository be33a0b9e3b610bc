package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bitor-console/internal/svc"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the settings API and live stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger

	svcCtx, err := svc.New(a.cfg, logger)
	if err != nil {
		return err
	}
	defer svcCtx.Close()

	if err := svcCtx.Start(ctx); err != nil {
		return err
	}

	// No read/write timeouts: they would cut off hijacked websocket
	// connections. The live hub keeps those alive with ping/pong.
	httpServer := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           svcCtx.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("console started",
		"addr", a.cfg.Server.Addr,
		"pocketbase_url", a.cfg.PocketBase.BaseURL,
		"telegram", svcCtx.Notifier != nil,
		"auto_refresh", svcCtx.Poller != nil,
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")

	// Close websocket clients first; Shutdown does not wait for hijacked
	// connections.
	svcCtx.Hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown timeout exceeded, forcing exit", "error", err)
		return httpServer.Close()
	}

	logger.Info("graceful shutdown complete")
	return nil
}
