package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/marketplace-auth/internal/config"
	"github.com/marketplace-auth/internal/gateway"
	jwtinfra "github.com/marketplace-auth/internal/infrastructure/jwt"
	"github.com/marketplace-auth/internal/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	logger.Init(cfg.Log)

	upstream, err := url.Parse(cfg.AuthServiceURL)
	if err != nil {
		slog.Error("invalid AUTH_SERVICE_URL", "url", cfg.AuthServiceURL, "err", err)
		os.Exit(1)
	}

	// Without the access secret every client gets the anonymous allowance.
	var verifier gateway.TokenVerifier
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		verifier = p
	} else {
		slog.Warn("token verification disabled", "err", err)
	}

	gw := gateway.New(upstream, verifier)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go gw.Run(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.GatewayPort),
		Handler:      gw.Handler(cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("gateway starting", "port", cfg.GatewayPort, "upstream", upstream.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gateway")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
		os.Exit(1)
	}
}
