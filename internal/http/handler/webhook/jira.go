package webhook

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/evergreen-ci/sage-sub002/common/logger"
	"github.com/evergreen-ci/sage-sub002/internal/http/dto"
	"github.com/evergreen-ci/sage-sub002/internal/queue"
)

// issueKeyPaths are tried in order; Jira sends issue.key, other senders use the flat forms.
var issueKeyPaths = []string{"issue.key", "issueKey", "issue_key"}

type JiraWebhookHandler struct {
	issues queue.IssueQueue
}

func NewJiraWebhookHandler(issues queue.IssueQueue) *JiraWebhookHandler {
	return &JiraWebhookHandler{issues: issues}
}

func (h *JiraWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	if !gjson.ValidBytes(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	issueKey := extractIssueKey(body)
	if issueKey == "" {
		slog.WarnContext(ctx, "jira webhook without issue key", "webhook_event", gjson.GetBytes(body, "webhookEvent").String())
		c.JSON(http.StatusBadRequest, gin.H{"error": "issue.key is required in the webhook payload"})
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{IssueKey: &issueKey})
	c.Request = c.Request.WithContext(ctx)

	if err := h.issues.Enqueue(ctx, issueKey); err != nil {
		_ = c.Error(err)
		slog.ErrorContext(ctx, "failed to enqueue jira issue", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Unable to enqueue Jira issue for processing"})
		return
	}

	slog.InfoContext(ctx, "jira issue queued")
	c.JSON(http.StatusAccepted, dto.JiraWebhookResponse{Status: "queued", IssueKey: issueKey})
}

func extractIssueKey(body []byte) string {
	for _, path := range issueKeyPaths {
		v := gjson.GetBytes(body, path)
		if v.Type != gjson.String {
			continue
		}
		if key := strings.TrimSpace(v.Str); key != "" {
			return key
		}
	}
	return ""
}
