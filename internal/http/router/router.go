package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evergreen-ci/sage-sub002/internal/http/handler"
	"github.com/evergreen-ci/sage-sub002/internal/http/handler/webhook"
	"github.com/evergreen-ci/sage-sub002/internal/http/middleware"
	"github.com/evergreen-ci/sage-sub002/internal/service"
)

type RouterConfig struct {
	ServiceName  string
	Version      string
	IsProduction bool
	// BodyLimit caps release notes request bodies, in bytes.
	BodyLimit    int64
	HealthChecks map[string]handler.Pinger
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": cfg.ServiceName, "version": cfg.Version})
	})

	healthHandler := handler.NewHealthHandler(cfg.HealthChecks)
	router.GET("/health", healthHandler.Check)

	releaseNotesHandler := handler.NewReleaseNotesHandler(services.ReleaseNotes(), cfg.IsProduction)
	ReleaseNotesRouter(router.Group("/completions/release-notes", middleware.BodyLimit(cfg.BodyLimit)), releaseNotesHandler)

	cursorKeyHandler := handler.NewCursorKeyHandler(services.Credentials())
	PRBotRouter(router.Group("/pr-bot", middleware.RequireUser()), cursorKeyHandler)

	jiraHandler := webhook.NewJiraWebhookHandler(services.JiraIssues())
	WebhookRouter(router.Group("/webhooks"), jiraHandler)
}
