package router

import (
	"github.com/gin-gonic/gin"

	"github.com/evergreen-ci/sage-sub002/internal/http/handler"
)

func PRBotRouter(router *gin.RouterGroup, handler *handler.CursorKeyHandler) {
	router.GET("/user/cursor-key", handler.Get)
	router.POST("/user/cursor-key", handler.Upsert)
	router.DELETE("/user/cursor-key", handler.Delete)
}
