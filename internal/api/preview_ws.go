package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"phCompose/internal/api/middleware"
	"phCompose/internal/errcode"
	"phCompose/internal/pagination"
	"phCompose/internal/paper"
	"phCompose/internal/preview"
	"phCompose/internal/store"
	"phCompose/internal/template"
	"phCompose/internal/viewport"
)

// PreviewHandler 为打开的文档维持一个实时分页会话。
type PreviewHandler struct {
	docs     *store.Repository
	registry *template.Registry
	surfaces pagination.SurfaceFactory
	scaler   viewport.Scaler
	debounce time.Duration
	upgrader websocket.Upgrader
}

func NewPreviewHandler(docs *store.Repository, registry *template.Registry, surfaces pagination.SurfaceFactory, scaler viewport.Scaler, debounce time.Duration) *PreviewHandler {
	return &PreviewHandler{
		docs:     docs,
		registry: registry,
		surfaces: surfaces,
		scaler:   scaler,
		debounce: debounce,
		upgrader: newUpgrader(),
	}
}

// previewClientMessage is either {"type":"content","record":{...}} or {"type":"resize","width":n}.
type previewClientMessage struct {
	Type   string        `json:"type"`
	Record *store.Record `json:"record,omitempty"`
	Width  float64       `json:"width,omitempty"`
}

type previewServerMessage struct {
	Type        string               `json:"type"`
	Pages       *pagination.Result   `json:"pages,omitempty"`
	Frame       *viewport.Frame      `json:"frame,omitempty"`
	Diagnostics []errcode.Diagnostic `json:"diagnostics,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// GET /v1/documents/:id/preview?width=n
// 服务端推送 layout 快照；客户端推送未保存的编辑与容器宽度。
func (h *PreviewHandler) Stream(c *gin.Context) {
	loaded := loadOwned(c, h.docs)
	if loaded == nil {
		return
	}
	width := float64(paper.WidthPx)
	if raw := c.Query("width"); raw != "" {
		if w, err := strconv.ParseFloat(raw, 64); err == nil && w > 0 {
			width = w
		}
	}
	log := middleware.LoggerFromContext(c).With(slog.Uint64("document_id", uint64(loaded.ID)))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("upgrade preview websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	engine := pagination.NewEngine(h.registry, h.surfaces, paper.HeightPx, errcode.SlogReporter(log), log)
	session := preview.NewSession(engine, h.scaler, width, h.debounce, log)
	session.ContentChanged(pagination.Input{Document: loaded.Record.Document, State: loaded.Record.Sections})

	go func() {
		if err := session.Run(ctx); err != nil && ctx.Err() == nil {
			log.Warn("preview session stopped", slog.Any("error", err))
		}
	}()

	notices := make(chan string, 4)
	go h.readLoop(ctx, conn, session, notices, cancel, log)
	h.writeLoop(ctx, conn, session, notices, log)
}

// readLoop 把客户端消息转给会话；协议错误通过 notices 回写，连接保持。
func (h *PreviewHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *preview.Session, notices chan<- string, cancel context.CancelFunc, log *slog.Logger) {
	defer cancel()
	notify := func(msg string) {
		select {
		case notices <- msg:
		default:
		}
	}
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("preview read ended", slog.Any("error", err))
			}
			return
		}
		var msg previewClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			notify("invalid message")
			continue
		}
		switch msg.Type {
		case "content":
			if msg.Record == nil || msg.Record.Document == nil {
				notify("content requires record.document")
				continue
			}
			session.ContentChanged(pagination.Input{Document: msg.Record.Document, State: msg.Record.Sections})
		case "resize":
			if msg.Width <= 0 {
				notify("resize requires a positive width")
				continue
			}
			session.Resized(msg.Width)
		default:
			notify("unknown message type")
		}
	}
}

func (h *PreviewHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *preview.Session, notices <-chan string, log *slog.Logger) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		var out previewServerMessage
		select {
		case <-ctx.Done():
			writeClose(conn, websocket.CloseNormalClosure, "bye")
			return
		case snap, ok := <-session.Updates():
			if !ok {
				return
			}
			out = previewServerMessage{Type: "layout", Pages: &snap.Pages, Frame: &snap.Frame, Diagnostics: snap.Diagnostics}
		case text := <-notices:
			out = previewServerMessage{Type: "error", Error: text}
		case <-ticker.C:
			if err := writePing(conn); err != nil {
				log.Info("preview ping failed", slog.Any("error", err))
				return
			}
			continue
		}
		if err := conn.WriteJSON(out); err != nil {
			log.Info("preview write failed", slog.Any("error", err))
			return
		}
	}
}
