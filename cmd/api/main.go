package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"tasknest/internal/auth"
	"tasknest/internal/config"
	transporthttp "tasknest/internal/http"
	"tasknest/internal/platform/database"
	"tasknest/internal/platform/logging"
	"tasknest/internal/platform/migrate"
	"tasknest/internal/tasks"
	"tasknest/internal/token"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)

	userRepo, taskRepo, cleanup, err := buildRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	verifier, err := buildVerifier(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize token verifier", "error", err)
		os.Exit(1)
	}

	authSvc := auth.NewService(verifier, userRepo, logger)
	taskSvc := tasks.NewService(taskRepo)
	router := transporthttp.NewRouter(cfg, authSvc, taskSvc, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	go func() {
		logger.Info("Tasknest API listening", "addr", srv.Addr, "store", cfg.DataStore, "verifier", cfg.AuthVerifier)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildVerifier(cfg config.Config, logger *slog.Logger) (token.Verifier, error) {
	if cfg.AuthVerifier == config.VerifierSecret {
		return token.NewSecretVerifier(cfg.AuthJWTSecret, cfg.AuthIssuerURL, logger)
	}

	keys := token.NewKeySetCache(cfg.JWKSURL(), nil, logger)
	return token.NewKeySetVerifier(cfg.AuthIssuerURL, keys, logger)
}

func buildRepositories(ctx context.Context, cfg config.Config, logger *slog.Logger) (auth.Repository, tasks.Repository, func(), error) {
	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory repositories")
		return auth.NewInMemoryRepository(), tasks.NewInMemoryRepository(), nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {
		_ = db.Close()
	}

	if err := migrate.Apply(ctx, db, logger); err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	logger.Info("connected to postgres")
	return auth.NewPostgresRepository(db), tasks.NewPostgresRepository(db), cleanup, nil
}
