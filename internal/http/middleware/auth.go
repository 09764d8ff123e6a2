package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/evergreen-ci/sage-sub002/common/logger"
)

type contextKey string

const userContextKey contextKey = "user_id"

// Auth reads the user from the JWT forwarded by the platform ingress in
// headerName. The ingress has already verified the signature, so only the
// sub claim is read. fallbackUser is used for local development when no
// header is present.
func Auth(headerName, fallbackUser string) gin.HandlerFunc {
	parser := jwt.NewParser()
	return func(c *gin.Context) {
		user := userFromToken(parser, c.GetHeader(headerName))
		if user == "" {
			user = fallbackUser
		}

		if user != "" {
			ctx := context.WithValue(c.Request.Context(), userContextKey, user)
			ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: &user})
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()
	}
}

func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c.Request.Context()) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		c.Next()
	}
}

func GetUserID(ctx context.Context) string {
	user, _ := ctx.Value(userContextKey).(string)
	return user
}

func userFromToken(parser *jwt.Parser, header string) string {
	token := strings.TrimSpace(header)
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return ""
	}

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return strings.TrimSpace(sub)
}
