package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"phCompose/internal/api/middleware"
	"phCompose/internal/document"
	"phCompose/internal/section"
	"phCompose/internal/storage"
	"phCompose/internal/store"
	"phCompose/internal/template"
)

// DocumentHandler 负责文档的增删改查。
type DocumentHandler struct {
	docs     *store.Repository
	registry *template.Registry
	objects  storage.ObjectStore
}

func NewDocumentHandler(docs *store.Repository, registry *template.Registry, objects storage.ObjectStore) *DocumentHandler {
	return &DocumentHandler{docs: docs, registry: registry, objects: objects}
}

type createDocumentRequest struct {
	Title      string `json:"title" binding:"max=255"`
	TemplateID string `json:"templateId"`
}

type documentResponse struct {
	ID       uint               `json:"id"`
	Status   string             `json:"status"`
	HasPDF   bool               `json:"hasPdf"`
	Document *document.Document `json:"document"`
	Sections section.State      `json:"sections"`
}

func newDocumentResponse(l *store.Loaded) documentResponse {
	return documentResponse{
		ID:       l.ID,
		Status:   l.Status,
		HasPDF:   l.PdfKey != "",
		Document: l.Record.Document,
		Sections: l.Record.Sections,
	}
}

// GET /v1/documents
func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	list, err := h.docs.List(c.Request.Context(), userID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("list documents failed", slog.Any("error", err))
		Internal(c, "failed to list documents")
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": list})
}

// POST /v1/documents
// 创建空白文档：全部板块可见，按固定顺序排列。
func (h *DocumentHandler) Create(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req createDocumentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}

	rec := store.NewRecord()
	if title := strings.TrimSpace(req.Title); title != "" {
		rec.Document.Title = title
	}
	if req.TemplateID != "" {
		if _, ok := h.registry.Lookup(req.TemplateID); !ok {
			BadRequest(c, "unknown template")
			return
		}
		rec.Document.TemplateID = req.TemplateID
	}

	loaded, err := h.docs.Create(c.Request.Context(), userID, rec)
	if err != nil {
		middleware.LoggerFromContext(c).Error("create document failed", slog.Any("error", err))
		Internal(c, "failed to create document")
		return
	}
	c.JSON(http.StatusCreated, newDocumentResponse(loaded))
}

// GET /v1/documents/:id
// 原样返回存储内容，不做迁移或对齐。
func (h *DocumentHandler) Get(c *gin.Context) {
	loaded := loadOwned(c, h.docs)
	if loaded == nil {
		return
	}
	c.JSON(http.StatusOK, newDocumentResponse(loaded))
}

// PUT /v1/documents/:id
// 整体替换文档内容与板块状态。
func (h *DocumentHandler) Update(c *gin.Context) {
	loaded := loadOwned(c, h.docs)
	if loaded == nil {
		return
	}

	var rec store.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if rec.Document == nil {
		BadRequest(c, "document is required")
		return
	}

	// 标识符永不复用：沿用已删除条目占用过的序号
	rec.Document.Seq = max(rec.Document.Seq, loaded.Record.Document.Seq)
	rec.Document.Repair()
	rec.Sections = section.Normalize(rec.Sections, rec.Document.SectionKeys())
	loaded.Record = rec

	if _, err := h.docs.Save(c.Request.Context(), loaded); err != nil {
		middleware.LoggerFromContext(c).Error("save document failed", slog.Any("error", err))
		Internal(c, "failed to save document")
		return
	}
	c.JSON(http.StatusOK, newDocumentResponse(loaded))
}

// DELETE /v1/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	loaded := loadOwned(c, h.docs)
	if loaded == nil {
		return
	}
	ctx := c.Request.Context()
	log := middleware.LoggerFromContext(c).With(slog.Uint64("document_id", uint64(loaded.ID)))

	if err := h.docs.Delete(ctx, loaded.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error("delete document failed", slog.Any("error", err))
		Internal(c, "failed to delete document")
		return
	}
	if err := h.objects.DeletePrefix(ctx, storage.DocumentPrefix(loaded.UserID, loaded.ID)); err != nil {
		// 行已删除，遗留对象不影响用户
		log.Warn("delete document objects failed", slog.Any("error", err))
	}
	c.Status(http.StatusNoContent)
}
