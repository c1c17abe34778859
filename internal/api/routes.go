package api

import (
	"github.com/gin-gonic/gin"

	"phCompose/internal/api/middleware"
	"phCompose/internal/store"
	"phCompose/internal/viewport"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, d Deps) {
	docs := store.NewRepository(d.DB)
	scaler := viewport.New(d.Layout.ViewportMargin)
	scanner := d.Scanner
	if scanner == nil {
		scanner = NewScanner("")
	}
	guard := d.LoginGuard
	if guard == nil && d.Redis != nil {
		guard = d.Redis
	}

	authHandler := NewAuthHandler(d.DB, d.Auth, guard, d.LoginLimits)
	wsHandler := NewWsHandler(d.Redis, d.Auth, d.logger())
	documentHandler := NewDocumentHandler(docs, d.Registry, d.Objects)
	sectionHandler := NewSectionHandler(docs)
	photoHandler := NewPhotoHandler(docs, scanner, d.Normalizer)
	layoutHandler := NewLayoutHandler(docs, d.Registry, d.Surfaces, scaler)
	previewHandler := NewPreviewHandler(docs, d.Registry, d.Surfaces, scaler, d.Layout.Debounce)
	exportHandler := NewExportHandler(docs, d.Exporter, d.Queue, d.Objects, d.PresignExpiry)
	templateHandler := NewTemplateHandler(d.DB, d.Registry, d.Objects, d.Queue, d.PresignExpiry)

	authMiddleware := middleware.AuthMiddleware(d.Auth)
	passwordGate := middleware.RequirePasswordChangeCompletedMiddleware()

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
		}

		v1.GET("/templates", authMiddleware, passwordGate, templateHandler.ListTemplates)

		docGroup := v1.Group("/documents")
		docGroup.Use(authMiddleware, passwordGate)
		{
			docGroup.GET("", documentHandler.List)
			docGroup.POST("", documentHandler.Create)
			docGroup.GET("/:id", documentHandler.Get)
			docGroup.PUT("/:id", documentHandler.Update)
			docGroup.DELETE("/:id", documentHandler.Delete)

			docGroup.POST("/:id/sections/toggle", sectionHandler.Toggle)
			docGroup.POST("/:id/sections/move", sectionHandler.Move)
			docGroup.POST("/:id/sections/prune", sectionHandler.Prune)

			docGroup.POST("/:id/photo", photoHandler.Upload)
			docGroup.DELETE("/:id/photo", photoHandler.Delete)

			docGroup.POST("/:id/layout", layoutHandler.Layout)
			docGroup.GET("/:id/html", layoutHandler.HTML)
			docGroup.GET("/:id/preview", previewHandler.Stream)

			docGroup.GET("/:id/pdf", exportHandler.PDF)
			docGroup.POST("/:id/export", exportHandler.Enqueue)
			docGroup.GET("/:id/download-link", exportHandler.DownloadLink)
		}
	}

	internal := router.Group("/internal")
	internal.Use(middleware.InternalSecretMiddleware(d.InternalSecret))
	{
		internal.POST("/templates/:id/preview", templateHandler.GeneratePreview)
	}
}
