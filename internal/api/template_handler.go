package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"phCompose/internal/api/middleware"
	"phCompose/internal/database"
	"phCompose/internal/storage"
	"phCompose/internal/tasks"
	"phCompose/internal/template"
)

// TemplateHandler 暴露模板目录与缩略图生成。
type TemplateHandler struct {
	db            *gorm.DB
	registry      *template.Registry
	objects       storage.ObjectStore
	queue         TaskQueue
	presignExpiry time.Duration
}

func NewTemplateHandler(db *gorm.DB, registry *template.Registry, objects storage.ObjectStore, queue TaskQueue, presignExpiry time.Duration) *TemplateHandler {
	if presignExpiry <= 0 {
		presignExpiry = 5 * time.Minute
	}
	return &TemplateHandler{db: db, registry: registry, objects: objects, queue: queue, presignExpiry: presignExpiry}
}

type templateListItem struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	ThemeAware      bool                `json:"themeAware"`
	Zones           []template.ZoneSpec `json:"zones"`
	PreviewImageURL string              `json:"previewImageUrl,omitempty"`
}

// GET /v1/templates
// 列出内置模板；已生成缩略图的附带预签名链接。
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	ctx := c.Request.Context()
	log := middleware.LoggerFromContext(c)

	var previews []database.TemplatePreview
	if err := h.db.WithContext(ctx).Find(&previews).Error; err != nil {
		log.Error("list template previews failed", slog.Any("error", err))
		Internal(c, "failed to list templates")
		return
	}
	keys := make(map[string]string, len(previews))
	for _, p := range previews {
		keys[p.TemplateID] = p.ImageKey
	}

	renderers := h.registry.List()
	items := make([]templateListItem, 0, len(renderers))
	for _, rd := range renderers {
		item := templateListItem{
			ID:         rd.ID(),
			Name:       rd.Name(),
			ThemeAware: rd.ThemeAware(),
			Zones:      rd.Zones(),
		}
		if key, ok := keys[rd.ID()]; ok {
			// 签发失败只影响缩略图，不影响目录本身
			if u, err := h.objects.PresignedURL(ctx, key, h.presignExpiry, ""); err == nil {
				item.PreviewImageURL = u
			} else {
				log.Warn("presign template preview failed", slog.String("template_id", rd.ID()), slog.Any("error", err))
			}
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, items)
}

// POST /internal/templates/:id/preview
// 触发缩略图渲染。重复请求在任务仍排队时视为已受理。
func (h *TemplateHandler) GeneratePreview(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.registry.Lookup(id); !ok {
		NotFound(c, "template not found")
		return
	}
	log := middleware.LoggerFromContext(c).With(slog.String("template_id", id))

	task, err := tasks.NewTemplatePreviewTask(id, middleware.GetCorrelationID(c))
	if err != nil {
		Internal(c, "failed to create task")
		return
	}
	info, err := h.queue.Enqueue(task)
	switch {
	case errors.Is(err, asynq.ErrTaskIDConflict):
		log.Info("template preview already queued")
		c.JSON(http.StatusAccepted, gin.H{"message": "preview already queued"})
		return
	case err != nil:
		log.Error("enqueue template preview failed", slog.Any("error", err))
		Internal(c, "failed to enqueue preview")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "preview queued", "task_id": info.ID})
}
