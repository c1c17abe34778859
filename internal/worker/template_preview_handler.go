package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"phCompose/internal/database"
	"phCompose/internal/storage"
	"phCompose/internal/tasks"
	"phCompose/internal/template"
)

const thumbnailQuality = 80

// Thumbnailer captures the first page of a layout; *browser.Launcher implements it.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, layout *template.Layout, quality int) ([]byte, error)
}

// TemplatePreviewHandler 负责模板缩略图生成任务。
type TemplatePreviewHandler struct {
	db       *gorm.DB
	registry *template.Registry
	shooter  Thumbnailer
	objects  storage.ObjectStore
	logger   *slog.Logger
}

func NewTemplatePreviewHandler(
	db *gorm.DB,
	registry *template.Registry,
	shooter Thumbnailer,
	objects storage.ObjectStore,
	logger *slog.Logger,
) *TemplatePreviewHandler {
	return &TemplatePreviewHandler{
		db:       db,
		registry: registry,
		shooter:  shooter,
		objects:  objects,
		logger:   logger,
	}
}

func (h *TemplatePreviewHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	log := h.logger

	var payload tasks.TemplatePreviewPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal template preview payload failed", slog.Any("error", err))
		return fmt.Errorf("%w: %w", asynq.SkipRetry, err)
	}

	log = log.With(
		slog.String("template_id", payload.TemplateID),
		slog.String("correlation_id", payload.CorrelationID),
	)
	log.Info("starting template preview generation")

	renderer, ok := h.registry.Lookup(payload.TemplateID)
	if !ok {
		log.Warn("template not registered, skipping task")
		return nil
	}

	// 模板缩略图统一使用示例文档渲染
	doc, state := template.Sample()
	layout := renderer.Render(doc, state)

	data, err := h.shooter.Thumbnail(ctx, layout, thumbnailQuality)
	if err != nil {
		log.Error("capture template screenshot failed", slog.Any("error", err))
		return err
	}

	key := storage.TemplatePreviewKey(payload.TemplateID)
	if err := h.objects.Put(ctx, key, data, "image/jpeg"); err != nil {
		log.Error("upload template preview failed", slog.Any("error", err))
		return err
	}

	row := database.TemplatePreview{TemplateID: payload.TemplateID, ImageKey: key}
	if err := h.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "template_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"image_key", "updated_at"}),
	}).Create(&row).Error; err != nil {
		log.Error("record template preview failed", slog.Any("error", err))
		return err
	}

	log.Info("template preview generation completed", slog.Int("bytes", len(data)))
	return nil
}
