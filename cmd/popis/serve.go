package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/popis/internal/api"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&a.addr, "addr", "a", "", "listen address (env POPIS_ADDR)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	b, err := openBackend(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer b.close()

	jwtSecret, err := b.jwtSecret(ctx, a.cfg)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           api.NewRouter(b.svc, jwtSecret),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		// Archive downloads fetch every photo of a scope.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", a.cfg.Addr, "backend", a.cfg.Backend, "photos", a.cfg.PhotoMode)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	slog.Info("server stopped, closing store")
	return nil
}
