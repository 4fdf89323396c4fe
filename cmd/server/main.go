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

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/forma22-agency/gh-dispatch-relay/common/clock"
	"github.com/forma22-agency/gh-dispatch-relay/common/id"
	"github.com/forma22-agency/gh-dispatch-relay/common/logger"
	"github.com/forma22-agency/gh-dispatch-relay/common/otel"
	"github.com/forma22-agency/gh-dispatch-relay/core/config"
	"github.com/forma22-agency/gh-dispatch-relay/internal/github"
	"github.com/forma22-agency/gh-dispatch-relay/internal/http/middleware"
	httprouter "github.com/forma22-agency/gh-dispatch-relay/internal/http/router"
	"github.com/forma22-agency/gh-dispatch-relay/internal/service"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err, "node_id", cfg.NodeID)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "relay starting",
		"env", cfg.Env,
		"owner", cfg.GitHub.Owner,
		"static_repository", cfg.GitHub.StaticRepository(),
		"auth", authMode(cfg),
		"event_type", cfg.Relay.EventType,
		"topics_policy", cfg.Topics.Enabled(),
	)
	if !cfg.Ready() {
		slog.WarnContext(ctx, "relay is degraded: owner or github credentials missing, webhooks will fail")
	}

	gateway, err := github.NewGateway(github.Config{
		BaseURL:    cfg.GitHub.APIURL,
		APIVersion: cfg.GitHub.APIVersion,
		Timeout:    cfg.GitHub.Timeout,
		UserAgent:  cfg.OTel.ServiceName + "/" + cfg.OTel.ServiceVersion,
	}, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create github gateway", "error", err)
		os.Exit(1)
	}

	services, err := service.NewServices(cfg, gateway, clock.Real(), slog.Default())
	if err != nil {
		slog.ErrorContext(ctx, "failed to create services", "error", err)
		os.Exit(1)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		WebhookSecret: cfg.Relay.WebhookSecret,
		Ready:         cfg.Ready(),
	})

	return router
}

func authMode(cfg config.Config) string {
	switch {
	case cfg.GitHub.Token != "":
		return "static_token"
	case cfg.App.Enabled() && cfg.App.InstallationID != 0:
		return "github_app"
	case cfg.App.Enabled():
		return "github_app_discovery"
	default:
		return "none"
	}
}

const banner = `
   ____ _   _       ____  _                 _       _       ____      _
  / ___| | | |     |  _ \(_)___ _ __   __ _| |_ ___| |__   |  _ \ ___| | __ _ _   _
 | |  _| |_| |_____| | | | / __| '_ \ / _' | __/ __| '_ \  | |_) / _ \ |/ _' | | | |
 | |_| |  _  |_____| |_| | \__ \ |_) | (_| | || (__| | | | |  _ <  __/ | (_| | |_| |
  \____|_| |_|     |____/|_|___/ .__/ \__,_|\__\___|_| |_| |_| \_\___|_|\__,_|\__, |
                               |_|                                            |___/
`
