package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PasswordChangeRequiredHeader tells the client to send the user to the change-password form.
const PasswordChangeRequiredHeader = "X-Password-Change-Required"

// MustChangePassword reports the must_change_password claim of the authenticated request.
func MustChangePassword(c *gin.Context) bool {
	v, ok := c.Get(MustChangePasswordKey)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// RequirePasswordChangeCompletedMiddleware 阻止一次性密码登录的账号访问文档与模板接口。
// 只看 access token 内的声明，不查库；改密后签发的新令牌即可放行。
func RequirePasswordChangeCompletedMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if MustChangePassword(c) {
			c.Header(PasswordChangeRequiredHeader, "true")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "password change required"})
			return
		}
		c.Next()
	}
}
