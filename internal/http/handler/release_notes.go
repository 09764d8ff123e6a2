package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evergreen-ci/sage-sub002/common/logger"
	"github.com/evergreen-ci/sage-sub002/internal/http/dto"
	"github.com/evergreen-ci/sage-sub002/internal/releasenotes"
	"github.com/evergreen-ci/sage-sub002/internal/service"
)

type ReleaseNotesHandler struct {
	releaseNotes service.ReleaseNotesService
	isProduction bool
}

func NewReleaseNotesHandler(releaseNotes service.ReleaseNotesService, isProduction bool) *ReleaseNotesHandler {
	return &ReleaseNotesHandler{
		releaseNotes: releaseNotes,
		isProduction: isProduction,
	}
}

func (h *ReleaseNotesHandler) Generate(c *gin.Context) {
	input, ok := bindReleaseNotesInput(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	result, err := h.releaseNotes.Generate(ctx, input)
	if err != nil {
		_ = c.Error(err)
		resp := gin.H{"message": "Failed to generate release notes"}
		if !h.isProduction {
			resp["details"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	c.JSON(http.StatusOK, result.Output)
}

// Plan returns the section plan without calling the model.
func (h *ReleaseNotesHandler) Plan(c *gin.Context) {
	input, ok := bindReleaseNotesInput(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.releaseNotes.Plan(c.Request.Context(), input))
}

func bindReleaseNotesInput(c *gin.Context) (releasenotes.Input, bool) {
	var req dto.GenerateReleaseNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "Request body too large"})
			return releasenotes.Input{}, false
		}
		fieldErrs := dto.BindingErrors(err)
		slog.WarnContext(c.Request.Context(), "invalid release notes request", "errors", len(fieldErrs), "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "errors": fieldErrs})
		return releasenotes.Input{}, false
	}

	if fieldErrs := req.Check(); len(fieldErrs) > 0 {
		slog.WarnContext(c.Request.Context(), "invalid release notes request", "errors", len(fieldErrs))
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "errors": fieldErrs})
		return releasenotes.Input{}, false
	}

	input := req.ToInput()
	if input.Product != nil {
		c.Request = c.Request.WithContext(logger.WithLogFields(c.Request.Context(), logger.LogFields{Product: input.Product}))
	}
	return input, true
}
