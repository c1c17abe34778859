package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"phCompose/internal/api/middleware"
	"phCompose/internal/database"
	"phCompose/internal/errcode"
	"phCompose/internal/export"
	"phCompose/internal/pagination"
	"phCompose/internal/storage"
	"phCompose/internal/store"
	"phCompose/internal/tasks"
)

// ExportHandler 负责 PDF 导出：同步直出、异步入队与下载链接。
type ExportHandler struct {
	docs          *store.Repository
	exporter      export.Exporter
	queue         TaskQueue
	objects       storage.ObjectStore
	presignExpiry time.Duration
}

func NewExportHandler(docs *store.Repository, exporter export.Exporter, queue TaskQueue, objects storage.ObjectStore, presignExpiry time.Duration) *ExportHandler {
	if presignExpiry <= 0 {
		presignExpiry = 5 * time.Minute
	}
	return &ExportHandler{docs: docs, exporter: exporter, queue: queue, objects: objects, presignExpiry: presignExpiry}
}

// GET /v1/documents/:id/pdf
func (h *ExportHandler) PDF(c *gin.Context) {
	loaded := loadOwned(c, h.docs)
	if loaded == nil {
		return
	}
	log := middleware.LoggerFromContext(c).With(slog.Uint64("document_id", uint64(loaded.ID)))

	out, err := h.exporter.Export(c.Request.Context(), export.Request{
		Document: loaded.Record.Document,
		State:    loaded.Record.Sections,
	})
	if err != nil {
		log.Error("export pdf failed", slog.Any("error", err))
		if errors.Is(err, pagination.ErrSurfaceUnavailable) {
			CodedError(c, http.StatusServiceUnavailable, errcode.SurfaceUnavailable, "export temporarily unavailable")
			return
		}
		CodedError(c, http.StatusInternalServerError, errcode.SystemError, "export failed")
		return
	}
	if len(out.Diagnostics) > 0 {
		log.Warn("pdf exported with diagnostics", slog.Any("diagnostics", out.Diagnostics))
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdfFilename(loaded.Record.Document.Title)))
	c.Header("X-Page-Count", strconv.Itoa(out.Pages.PageCount))
	c.Header("X-Template-ID", out.TemplateID)
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

// POST /v1/documents/:id/export
// 将导出任务入队并立即返回 202，结果通过 WebSocket 通知。
func (h *ExportHandler) Enqueue(c *gin.Context) {
	loaded := loadOwned(c, h.docs)
	if loaded == nil {
		return
	}
	ctx := c.Request.Context()
	log := middleware.LoggerFromContext(c).With(slog.Uint64("document_id", uint64(loaded.ID)))

	exportID := uuid.NewString()
	task, err := tasks.NewDocumentExportTask(loaded.ID, exportID, middleware.GetCorrelationID(c))
	if err != nil {
		Internal(c, "failed to create task")
		return
	}
	if err := h.docs.SetExport(ctx, loaded.ID, database.StatusPending, ""); err != nil {
		log.Error("mark export pending failed", slog.Any("error", err))
		Internal(c, "failed to update document")
		return
	}
	info, err := h.queue.Enqueue(task)
	if err != nil {
		log.Error("enqueue export failed", slog.Any("error", err))
		Internal(c, "failed to enqueue export")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "export request accepted",
		"export_id": exportID,
		"task_id":   info.ID,
	})
}

// GET /v1/documents/:id/download-link
// 生成最近一次导出 PDF 的预签名下载链接。
func (h *ExportHandler) DownloadLink(c *gin.Context) {
	loaded := loadOwned(c, h.docs)
	if loaded == nil {
		return
	}
	if loaded.PdfKey == "" {
		Conflict(c, "pdf not ready")
		return
	}

	ctx := c.Request.Context()
	exists, err := h.objects.Exists(ctx, loaded.PdfKey)
	if err != nil {
		middleware.LoggerFromContext(c).Error("stat pdf failed", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}
	if !exists {
		// 对象被生命周期策略清理后需要重新导出
		CodedError(c, http.StatusGone, errcode.ResourceMissing, "exported pdf expired, export again")
		return
	}

	signedURL, err := h.objects.PresignedURL(ctx, loaded.PdfKey, h.presignExpiry, pdfFilename(loaded.Record.Document.Title))
	if err != nil {
		middleware.LoggerFromContext(c).Error("presign pdf failed", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":        signedURL,
		"status":     loaded.Status,
		"expires_in": int(h.presignExpiry.Seconds()),
	})
}

// pdfFilename turns a title into a safe attachment name.
func pdfFilename(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			return r
		case unicode.IsSpace(r), r == '.':
			return '-'
		}
		return -1
	}, strings.TrimSpace(title))
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	name = strings.Trim(name, "-")
	if name == "" {
		name = "document"
	}
	return name + ".pdf"
}
