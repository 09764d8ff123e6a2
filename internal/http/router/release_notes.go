package router

import (
	"github.com/gin-gonic/gin"

	"github.com/evergreen-ci/sage-sub002/internal/http/handler"
)

func ReleaseNotesRouter(router *gin.RouterGroup, handler *handler.ReleaseNotesHandler) {
	router.POST("/generate", handler.Generate)
	router.POST("/plan", handler.Plan)
}
