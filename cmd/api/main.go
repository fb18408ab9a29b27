package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/marketplace-auth/internal/config"
	"github.com/marketplace-auth/internal/infrastructure/dynamo"
	jwtinfra "github.com/marketplace-auth/internal/infrastructure/jwt"
	"github.com/marketplace-auth/internal/infrastructure/memkv"
	"github.com/marketplace-auth/internal/infrastructure/smtp"
	"github.com/marketplace-auth/internal/infrastructure/sqlstore"
	"github.com/marketplace-auth/internal/pkg/logger"
	transporthttp "github.com/marketplace-auth/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	logger.Init(cfg.Log)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// OTP and lock state.
	var state transporthttp.StateStore
	switch cfg.StateBackend {
	case "memory":
		mem := memkv.New()
		go mem.RunJanitor(ctx, time.Minute)
		state = mem
		slog.Warn("using in-memory state store; OTP state is not shared between instances")
	default:
		dynamoClient := dynamo.NewClient(cfg)
		dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
		state = dynamo.NewStateStore(dynamoClient, cfg.DynamoTables.AuthState)
	}

	db, err := sqlstore.Open(cfg.DatabaseDSN)
	if err != nil {
		slog.Error("open database", "dsn", cfg.DatabaseDSN, "err", err)
		os.Exit(1)
	}

	mailer, err := smtp.NewMailer(cfg)
	if err != nil {
		slog.Error("load mail templates", "err", err)
		os.Exit(1)
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		slog.Error("JWT provider not available", "err", err)
		os.Exit(1)
	}

	deps := &transporthttp.Deps{
		Users:       sqlstore.NewUserRepo(db),
		Sellers:     sqlstore.NewSellerRepo(db),
		State:       state,
		Mailer:      mailer,
		JWTProvider: jwtProvider,
	}

	router, limiter := transporthttp.NewRouter(cfg, deps)
	go limiter.Run(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("auth service starting", "port", cfg.AppPort, "env", cfg.AppEnv, "state", cfg.StateBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
