// Package main запускает HTTP-сервер витрины.
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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/storefront/internal/config"
	"github.com/mmeshcher/storefront/internal/handler"
	"github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/service"
	"github.com/mmeshcher/storefront/internal/token"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}
	if err := cfg.Validate(); err != nil {
		sugar.Fatalw("invalid configuration", "error", err.Error())
	}

	repo, err := newRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	tokens, err := token.New([]byte(cfg.TokenSecret), cfg.TokenTTL)
	if err != nil {
		sugar.Fatalw("token service initialization error", "error", err.Error())
	}

	svc := service.NewService(repo, tokens, logger)
	defer svc.Close()

	if cfg.SeedAdmin() {
		seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := svc.EnsureAdmin(seedCtx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword)
		cancel()
		if err != nil {
			sugar.Fatalw("admin seeding error", "error", err.Error())
		}
	} else {
		sugar.Info("ADMIN_PASSWORD is not set, skipping admin seeding")
	}

	auth := middleware.NewAuthenticator(tokens, svc, logger)
	h := handler.NewHandler(svc, logger, auth)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting storefront server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Errorw("application terminated with error", "error", err)
	}
}

func newRepository(dsn string) (service.Repository, error) {
	if dsn == "" {
		return repository.NewMemoryRepository(), nil
	}
	return repository.NewPostgresRepository(dsn)
}
