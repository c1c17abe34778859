package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"phCompose/internal/database"
	"phCompose/internal/errcode"
	"phCompose/internal/export"
	"phCompose/internal/pagination"
	"phCompose/internal/storage"
	"phCompose/internal/store"
	"phCompose/internal/tasks"
)

// DocumentStore is the part of store.Repository the export handler needs.
type DocumentStore interface {
	Load(ctx context.Context, id uint) (*store.Loaded, error)
	SetExport(ctx context.Context, id uint, status, pdfKey string) error
}

// ExportHandler 负责消费文档导出任务。
type ExportHandler struct {
	docs     DocumentStore
	exporter export.Exporter
	objects  storage.ObjectStore
	notifier Publisher
	logger   *slog.Logger
}

// NewExportHandler 创建任务处理器。
func NewExportHandler(
	docs DocumentStore,
	exporter export.Exporter,
	objects storage.ObjectStore,
	notifier Publisher,
	logger *slog.Logger,
) *ExportHandler {
	return &ExportHandler{
		docs:     docs,
		exporter: exporter,
		objects:  objects,
		notifier: notifier,
		logger:   logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.DocumentExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		// 载荷损坏重试无意义
		return fmt.Errorf("%w: %w", asynq.SkipRetry, err)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("document_id", uint64(payload.DocumentID)),
		slog.String("export_id", payload.ExportID),
	)
	log.Info("starting document export")

	loaded, err := h.docs.Load(ctx, payload.DocumentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("document not found, skipping task")
			return nil
		}
		log.Error("load document failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.Uint64("user_id", uint64(loaded.UserID)))

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		if err := h.docs.SetExport(ctx, loaded.ID, database.StatusFailed, ""); err != nil {
			log.Error("mark export failed", slog.Any("error", err))
		}
		code := errcode.SystemError
		if errors.Is(retErr, pagination.ErrSurfaceUnavailable) {
			code = errcode.SurfaceUnavailable
		}
		notify := ExportNotifyMessage{
			Status:        StatusError,
			DocumentID:    loaded.ID,
			ExportID:      payload.ExportID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     code,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := publishNotify(ctx, h.notifier, loaded.UserID, notify); err != nil {
			log.Error("publish export error notification failed", slog.Any("error", err))
		}
	}()

	out, err := h.exporter.Export(ctx, export.Request{
		Document: loaded.Record.Document,
		State:    loaded.Record.Sections,
	})
	if err != nil {
		log.Error("export document failed", slog.Any("error", err))
		return err
	}

	key := storage.ExportKey(loaded.UserID, loaded.ID, payload.ExportID)
	if err := h.objects.Put(ctx, key, out.Data, out.ContentType); err != nil {
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return err
	}

	if err := h.docs.SetExport(ctx, loaded.ID, database.StatusCompleted, key); err != nil {
		log.Error("update document failed", slog.Any("error", err))
		return err
	}

	notify := ExportNotifyMessage{
		Status:        StatusCompleted,
		DocumentID:    loaded.ID,
		ExportID:      payload.ExportID,
		CorrelationID: payload.CorrelationID,
		PageCount:     out.Pages.PageCount,
		ErrorCode:     errcode.OK,
		Warnings:      out.Diagnostics,
	}
	if len(out.Diagnostics) > 0 {
		notify.ErrorCode = out.Diagnostics[0].Code
		notify.ErrorMessage = "导出完成，但部分内容已按默认方式处理"
		log.Warn("document exported with diagnostics", slog.Any("diagnostics", out.Diagnostics))
	}
	if err := publishNotify(ctx, h.notifier, loaded.UserID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("document export completed",
		slog.Int("pages", out.Pages.PageCount),
		slog.String("template_id", out.TemplateID),
	)
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
