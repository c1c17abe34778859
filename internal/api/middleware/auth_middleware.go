package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"phCompose/internal/auth"
)

// Context keys set by AuthMiddleware.
const (
	UserIDKey             = "userID"
	MustChangePasswordKey = "mustChangePassword"
)

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// AuthMiddleware 校验访问令牌并将 userID 注入上下文。
// 浏览器无法为 WebSocket 握手设置请求头，因此 Upgrade 请求允许通过 token 查询参数传递令牌。
func AuthMiddleware(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateToken(rawToken)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(MustChangePasswordKey, claims.MustChangePassword)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			token := strings.TrimSpace(c.Query("token"))
			return token, token != ""
		}
		return "", false
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], strings.TrimSpace(parts[1]) != ""
}
