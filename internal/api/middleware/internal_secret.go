package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// InternalSecretHeader carries the shared secret of operator and worker calls.
const InternalSecretHeader = "X-Internal-Secret"

// InternalSecretMiddleware 保护运维与内部接口（/metrics、模板缩略图重建）。
// configured 可以是逗号分隔的多个密钥，轮换期间新旧密钥同时有效。
func InternalSecretMiddleware(configured string) gin.HandlerFunc {
	secrets := splitSecrets(configured)
	return func(c *gin.Context) {
		if len(secrets) == 0 {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal api secret is not configured"})
			return
		}
		// 只接受 Header，query 会泄露到浏览器历史与访问日志。
		token := strings.TrimSpace(c.GetHeader(InternalSecretHeader))
		if token == "" || !matchesAny(token, secrets) {
			LoggerFromContext(c).Warn("internal endpoint denied", slog.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func splitSecrets(configured string) [][]byte {
	var out [][]byte
	for _, s := range strings.Split(configured, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, []byte(s))
		}
	}
	return out
}

// matchesAny compares against every secret so timing does not reveal which one matched.
func matchesAny(token string, secrets [][]byte) bool {
	ok := 0
	for _, s := range secrets {
		ok |= subtle.ConstantTimeCompare([]byte(token), s)
	}
	return ok == 1
}
