package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"phCompose/internal/api/middleware"
	"phCompose/internal/errcode"
	"phCompose/internal/pagination"
	"phCompose/internal/paper"
	"phCompose/internal/store"
	"phCompose/internal/template"
	"phCompose/internal/viewport"
)

// LayoutHandler 提供一次性排版计算与预览 HTML。
type LayoutHandler struct {
	docs     *store.Repository
	registry *template.Registry
	surfaces pagination.SurfaceFactory
	scaler   viewport.Scaler
}

func NewLayoutHandler(docs *store.Repository, registry *template.Registry, surfaces pagination.SurfaceFactory, scaler viewport.Scaler) *LayoutHandler {
	return &LayoutHandler{docs: docs, registry: registry, surfaces: surfaces, scaler: scaler}
}

type layoutRequest struct {
	ContainerWidth float64 `json:"containerWidth" binding:"required,gt=0"`
	// Record, when present, is laid out instead of the stored content and is not saved.
	Record *store.Record `json:"record"`
}

type layoutResponse struct {
	TemplateID       string               `json:"templateId"`
	PageCount        int                  `json:"pageCount"`
	PageBreakOffsets []int                `json:"pageBreakOffsets"`
	Frame            viewport.Frame       `json:"frame"`
	Diagnostics      []errcode.Diagnostic `json:"diagnostics,omitempty"`
}

// POST /v1/documents/:id/layout
func (h *LayoutHandler) Layout(c *gin.Context) {
	loaded := loadOwned(c, h.docs)
	if loaded == nil {
		return
	}
	var req layoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	rec := loaded.Record
	if req.Record != nil {
		if req.Record.Document == nil {
			BadRequest(c, "record.document is required")
			return
		}
		rec = *req.Record
	}

	log := middleware.LoggerFromContext(c)
	engine := pagination.NewEngine(h.registry, h.surfaces, paper.HeightPx, errcode.SlogReporter(log), log)
	pages, _, err := engine.Measure(c.Request.Context(), pagination.Input{Document: rec.Document, State: rec.Sections})
	if err != nil {
		if errors.Is(err, pagination.ErrSurfaceUnavailable) {
			log.Error("measuring surface unavailable", slog.Any("error", err))
			CodedError(c, http.StatusServiceUnavailable, errcode.SurfaceUnavailable, "layout temporarily unavailable")
			return
		}
		log.Warn("layout measure aborted", slog.Any("error", err))
		CodedError(c, http.StatusInternalServerError, errcode.SystemError, "layout failed")
		return
	}

	c.JSON(http.StatusOK, layoutResponse{
		TemplateID:       h.registry.ResolveID(rec.Document.TemplateID),
		PageCount:        pages.PageCount,
		PageBreakOffsets: pages.PageBreakOffsets,
		Frame:            h.scaler.Frame(req.ContainerWidth, pages.PageCount),
		Diagnostics:      engine.Diagnostics(),
	})
}

// GET /v1/documents/:id/html
// 返回与导出一致的页面 HTML，供前端 iframe 预览。
func (h *LayoutHandler) HTML(c *gin.Context) {
	loaded := loadOwned(c, h.docs)
	if loaded == nil {
		return
	}
	layout := h.registry.Render(loaded.Record.Document, loaded.Record.Sections)
	var buf bytes.Buffer
	if err := layout.HTML(&buf); err != nil {
		middleware.LoggerFromContext(c).Error("render html failed", slog.Any("error", err))
		Internal(c, "failed to render document")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
