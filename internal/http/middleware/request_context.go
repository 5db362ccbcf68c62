package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/songcatalog-backend/internal/platform/ctxutil"
)

// AttachRequestContext keeps the caller's bearer token on the request context
// so storage calls made on its behalf can forward it.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			c.Request = c.Request.WithContext(ctxutil.WithAccessToken(c.Request.Context(), token))
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
