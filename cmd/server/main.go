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

	"github.com/evergreen-ci/sage-sub002/common/id"
	"github.com/evergreen-ci/sage-sub002/common/llm"
	"github.com/evergreen-ci/sage-sub002/common/logger"
	"github.com/evergreen-ci/sage-sub002/common/otel"
	"github.com/evergreen-ci/sage-sub002/common/sentry"
	"github.com/evergreen-ci/sage-sub002/core/config"
	"github.com/evergreen-ci/sage-sub002/core/db"
	"github.com/evergreen-ci/sage-sub002/internal/http/handler"
	"github.com/evergreen-ci/sage-sub002/internal/http/middleware"
	httprouter "github.com/evergreen-ci/sage-sub002/internal/http/router"
	"github.com/evergreen-ci/sage-sub002/internal/queue"
	"github.com/evergreen-ci/sage-sub002/internal/sealed"
	"github.com/evergreen-ci/sage-sub002/internal/service"
	"github.com/evergreen-ci/sage-sub002/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
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

	flushSentry, err := sentry.Setup(cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize sentry", "error", err)
		os.Exit(1)
	}
	defer flushSentry()

	slog.InfoContext(ctx, "sage starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to apply migrations", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "database connected")

	redisClient, err := queue.NewRedisClient(cfg.Redis.URL, time.Duration(cfg.Redis.ClientTimeout)*time.Second)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create redis client", "error", err)
		os.Exit(1)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// The webhook answers 503 until redis is reachable.
		slog.WarnContext(ctx, "redis unreachable at startup", "error", err)
	}

	jiraIssues, err := queue.NewRedisIssueQueue(redisClient, cfg.Redis.JiraQueueKey, slog.Default())
	if err != nil {
		slog.ErrorContext(ctx, "failed to create jira issue queue", "error", err)
		os.Exit(1)
	}
	defer jiraIssues.Close()
	slog.InfoContext(ctx, "jira issue queue ready", "key", cfg.Redis.JiraQueueKey)

	sealer, err := newSealer(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize encryption", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "encryption ready", "recipient", sealer.Recipient())

	llmClient, err := newLLMClient(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create llm client", "error", err)
		os.Exit(1)
	}

	stores := store.NewStores(database.Queries())
	services := service.NewServices(stores, sealer, jiraIssues, llmClient, service.ReleaseNotesConfig{
		MaxTokens:     cfg.LLM.MaxTokens,
		Temperature:   cfg.LLM.Temperature,
		MaxConcurrent: cfg.LLM.MaxConcurrent,
		MaxAttempts:   3,
		RetryDelay:    time.Second,
	}, slog.Default())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, map[string]handler.Pinger{
		"postgres": database,
		"redis":    jiraIssues,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute, // generation spans several model round trips
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

// newSealer uses the configured age identity. Outside production a throwaway
// identity is generated so the server can start without one; keys stored
// with it cannot be read after a restart.
func newSealer(ctx context.Context, cfg config.Config) (*sealed.Sealer, error) {
	identity := cfg.Encryption.Identity
	if !cfg.Encryption.Enabled() {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("ENCRYPTION_KEY is required in production")
		}
		generated, _, err := sealed.GenerateIdentity()
		if err != nil {
			return nil, err
		}
		slog.WarnContext(ctx, "ENCRYPTION_KEY not set, using an ephemeral identity")
		identity = generated
	}
	return sealed.New(identity)
}

// newLLMClient builds the configured provider client. Without an API key
// (only allowed outside production) generation fails with
// llm.ErrNotConfigured while the other routes keep working.
func newLLMClient(ctx context.Context, cfg config.Config) (llm.Client, error) {
	if !cfg.LLM.Enabled() {
		slog.WarnContext(ctx, "LLM_API_KEY not set, release notes generation is disabled")
		return llm.NewUnconfigured(cfg.LLM.Model), nil
	}

	client, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "llm client ready", "provider", cfg.LLM.Provider, "model", client.Model())
	return client, nil
}

func setupRouter(cfg config.Config, services *service.Services, checks map[string]handler.Pinger) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Sentry hub → Recovery catches panics →
	// request id and user feed the log fields → Logger logs with all of it
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Sentry())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Auth(cfg.Auth.HeaderName, cfg.Auth.FallbackUser))
	router.Use(middleware.Logger("/health", "/"))

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		ServiceName:  cfg.OTel.ServiceName,
		Version:      cfg.OTel.ServiceVersion,
		IsProduction: cfg.IsProduction(),
		BodyLimit:    cfg.BodyLimit,
		HealthChecks: checks,
	})

	return router
}

const banner = `
███████╗ █████╗  ██████╗ ███████╗
██╔════╝██╔══██╗██╔════╝ ██╔════╝
███████╗███████║██║  ███╗█████╗
╚════██║██╔══██║██║   ██║██╔══╝
███████║██║  ██║╚██████╔╝███████╗
╚══════╝╚═╝  ╚═╝ ╚═════╝ ╚══════╝
`
