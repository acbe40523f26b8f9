package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/opname/internal/api"
	"github.com/erazemk/opname/internal/auth"
	"github.com/erazemk/opname/internal/config"
	"github.com/erazemk/opname/internal/opname"
	"github.com/erazemk/opname/internal/store"
)

func runServe(cfg config.Config) error {
	ctx := context.Background()

	a, err := openApp(ctx, cfg, auth.ContextProvider{})
	if err != nil {
		return err
	}
	defer a.Close()

	jwtSecret, err := store.GetJWTSecret(ctx, a.db)
	if err != nil {
		return fmt.Errorf("getting jwt secret: %w", err)
	}
	if n, err := store.PurgeRevokedTokens(ctx, a.db, time.Now()); err != nil {
		slog.Error("purging revoked tokens", "error", err)
	} else if n > 0 {
		slog.Info("purged expired token revocations", "count", n)
	}

	sessions := opname.NewManager(a.inventory, a.metrics, nil)
	defer sessions.CloseAll()

	server := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: api.NewRouter(api.Deps{
			DB:         a.db,
			JWTSecret:  jwtSecret,
			Inventory:  a.inventory,
			Categories: a.categories,
			Sessions:   sessions,
			Metrics:    a.metrics,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
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

	slog.Info("server started", "addr", cfg.HTTP.Addr, "metrics", a.metrics != nil)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}

	slog.Info("server stopped, closing stores")
	return nil
}
