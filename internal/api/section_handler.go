package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"phCompose/internal/api/middleware"
	"phCompose/internal/errcode"
	"phCompose/internal/section"
	"phCompose/internal/store"
)

// SectionHandler 负责板块显隐与排序。无效请求不报错，而是以诊断信息返回原状态。
type SectionHandler struct {
	docs *store.Repository
}

func NewSectionHandler(docs *store.Repository) *SectionHandler {
	return &SectionHandler{docs: docs}
}

type toggleRequest struct {
	Key string `json:"key" binding:"required"`
}

type moveRequest struct {
	Key       string `json:"key"`
	Index     *int   `json:"index"`
	Direction int    `json:"direction" binding:"required,oneof=-1 1"`
}

type sectionResponse struct {
	Sections    section.State        `json:"sections"`
	Changed     bool                 `json:"changed"`
	Diagnostics []errcode.Diagnostic `json:"diagnostics,omitempty"`
}

// POST /v1/documents/:id/sections/toggle
func (h *SectionHandler) Toggle(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	h.edit(c, func(ed *section.Editor) bool { return ed.Toggle(req.Key) })
}

// POST /v1/documents/:id/sections/move
// 按 key 或 index 指定板块，direction 为 -1（上移）或 1（下移）。
func (h *SectionHandler) Move(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if (req.Key == "") == (req.Index == nil) {
		BadRequest(c, "exactly one of key or index is required")
		return
	}
	h.edit(c, func(ed *section.Editor) bool {
		if req.Index != nil {
			return ed.Move(*req.Index, req.Direction)
		}
		return ed.MoveKey(req.Key, req.Direction)
	})
}

// POST /v1/documents/:id/sections/prune
// 清理已删除自定义板块遗留的键。
func (h *SectionHandler) Prune(c *gin.Context) {
	h.edit(c, func(ed *section.Editor) bool {
		ed.Prune()
		return true
	})
}

func (h *SectionHandler) edit(c *gin.Context, op func(*section.Editor) bool) {
	loaded := loadOwned(c, h.docs)
	if loaded == nil {
		return
	}

	var diags errcode.Collector
	ed := section.NewEditor(loaded.Record.Document, loaded.Record.Sections, &diags)
	applied := op(ed)

	next := ed.State()
	loaded.Record.Sections = next
	changed, err := loaded.Changed()
	if err != nil {
		Internal(c, "failed to encode document")
		return
	}
	if applied && changed {
		if _, err := h.docs.Save(c.Request.Context(), loaded); err != nil {
			middleware.LoggerFromContext(c).Error("save sections failed", slog.Any("error", err))
			Internal(c, "failed to save document")
			return
		}
	} else {
		changed = false
	}

	c.JSON(http.StatusOK, sectionResponse{
		Sections:    next,
		Changed:     changed,
		Diagnostics: diags.Diagnostics(),
	})
}
