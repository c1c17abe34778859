package api

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"phCompose/internal/api/middleware"
	"phCompose/internal/errcode"
	"phCompose/internal/imaging"
	"phCompose/internal/store"
)

const maxPhotoBytes = 10 << 20

// PhotoHandler 负责头像上传：病毒扫描后归一化为 JPEG 并写入文档。
type PhotoHandler struct {
	docs       *store.Repository
	scanner    Scanner
	normalizer imaging.Normalizer
}

func NewPhotoHandler(docs *store.Repository, scanner Scanner, normalizer imaging.Normalizer) *PhotoHandler {
	if scanner == nil {
		scanner = nopScanner{}
	}
	return &PhotoHandler{docs: docs, scanner: scanner, normalizer: normalizer}
}

// POST /v1/documents/:id/photo
// 解码失败返回 422 且文档保持不变。
func (h *PhotoHandler) Upload(c *gin.Context) {
	loaded := loadOwned(c, h.docs)
	if loaded == nil {
		return
	}
	log := middleware.LoggerFromContext(c).With(slog.Uint64("document_id", uint64(loaded.ID)))

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if file.Size > maxPhotoBytes {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	f, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	raw, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes+1))
	_ = f.Close()
	if err != nil {
		Internal(c, "failed to read file")
		return
	}
	if len(raw) > maxPhotoBytes {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	if err := h.scanner.Scan(c.Request.Context(), bytes.NewReader(raw)); err != nil {
		if errors.Is(err, ErrInfected) {
			BadRequest(c, err.Error())
			return
		}
		log.Error("scan file", slog.Any("error", err))
		Internal(c, "failed to scan file")
		return
	}

	if err := h.normalizer.ReplacePhoto(&loaded.Record.Document.PersonalInfo, raw); err != nil {
		var de *imaging.DecodeError
		if errors.As(err, &de) {
			log.Info("photo rejected", slog.String("format", de.Format), slog.Any("error", err))
			CodedError(c, http.StatusUnprocessableEntity, errcode.DecodeError, "image could not be decoded")
			return
		}
		log.Error("normalize photo failed", slog.Any("error", err))
		Internal(c, "failed to process image")
		return
	}

	if _, err := h.docs.Save(c.Request.Context(), loaded); err != nil {
		log.Error("save photo failed", slog.Any("error", err))
		Internal(c, "failed to save document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bytes": len(loaded.Record.Document.PersonalInfo.Photo)})
}

// DELETE /v1/documents/:id/photo
func (h *PhotoHandler) Delete(c *gin.Context) {
	loaded := loadOwned(c, h.docs)
	if loaded == nil {
		return
	}
	if len(loaded.Record.Document.PersonalInfo.Photo) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	loaded.Record.Document.PersonalInfo.Photo = nil
	if _, err := h.docs.Save(c.Request.Context(), loaded); err != nil {
		middleware.LoggerFromContext(c).Error("remove photo failed", slog.Any("error", err))
		Internal(c, "failed to save document")
		return
	}
	c.Status(http.StatusNoContent)
}
