package router

import (
	"github.com/gin-gonic/gin"

	"github.com/evergreen-ci/sage-sub002/internal/http/handler/webhook"
)

func WebhookRouter(router *gin.RouterGroup, handler *webhook.JiraWebhookHandler) {
	router.POST("/jira", handler.HandleEvent)
}
