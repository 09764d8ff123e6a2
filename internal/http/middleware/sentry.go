package middleware

import (
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// Sentry gives each request its own hub and reports errors attached with
// c.Error when the response is a 5xx. Register it before Recovery so panics
// reach the hub.
func Sentry() gin.HandlerFunc {
	return func(c *gin.Context) {
		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetRequest(c.Request)
		c.Request = c.Request.WithContext(sentry.SetHubOnContext(c.Request.Context(), hub))

		c.Next()

		if c.Writer.Status() < 500 || len(c.Errors) == 0 {
			return
		}

		ctx := c.Request.Context()
		hub.WithScope(func(scope *sentry.Scope) {
			if user := GetUserID(ctx); user != "" {
				scope.SetUser(sentry.User{ID: user})
			}
			if requestID := GetRequestID(ctx); requestID != "" {
				scope.SetTag("request_id", requestID)
			}
			scope.SetTag("route", c.FullPath())
			for _, e := range c.Errors {
				hub.CaptureException(e.Err)
			}
		})
	}
}
