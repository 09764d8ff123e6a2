package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evergreen-ci/sage-sub002/internal/http/dto"
	"github.com/evergreen-ci/sage-sub002/internal/http/middleware"
	"github.com/evergreen-ci/sage-sub002/internal/service"
)

// CursorKeyHandler manages the Cursor API key the PR bot uses on a user's behalf.
type CursorKeyHandler struct {
	credentials service.CredentialService
}

func NewCursorKeyHandler(credentials service.CredentialService) *CursorKeyHandler {
	return &CursorKeyHandler{credentials: credentials}
}

func (h *CursorKeyHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	status, err := h.credentials.Status(ctx, middleware.GetUserID(ctx))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch api key status"})
		return
	}

	c.JSON(http.StatusOK, dto.ToCursorKeyStatusResponse(status))
}

func (h *CursorKeyHandler) Upsert(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpsertCursorKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "apiKey is required"})
		return
	}

	status, err := h.credentials.Upsert(ctx, middleware.GetUserID(ctx), req.APIKey)
	if err != nil {
		if errors.Is(err, service.ErrAPIKeyRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store api key"})
		return
	}

	c.JSON(http.StatusOK, dto.UpsertCursorKeyResponse{Success: true, KeyLastFour: status.KeyLastFour})
}

func (h *CursorKeyHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.credentials.Delete(ctx, middleware.GetUserID(ctx)); err != nil {
		if errors.Is(err, service.ErrCredentialNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No API key found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete api key"})
		return
	}

	c.JSON(http.StatusOK, dto.DeleteCursorKeyResponse{Success: true})
}
