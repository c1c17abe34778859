package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"phCompose/internal/api/middleware"
	"phCompose/internal/metrics"
)

// NewRouter 构建 Gin 路由引擎：公共中间件、健康检查与受内部密钥保护的 /metrics。
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(d.logger()),
		metrics.GinMiddleware(),
		gin.Recovery(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", middleware.InternalSecretMiddleware(d.InternalSecret), gin.WrapH(promhttp.Handler()))

	return router
}
