package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"phCompose/internal/auth"
	"phCompose/internal/worker"
)

const wsPingInterval = 30 * time.Second

// WsHandler 负责通知通道的 WebSocket 鉴权与消息转发。
type WsHandler struct {
	redisClient *redis.Client
	authService *auth.Service
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

// NewWsHandler 构造 WebSocket 处理器。
func NewWsHandler(redisClient *redis.Client, authService *auth.Service, logger *slog.Logger) *WsHandler {
	return &WsHandler{
		redisClient: redisClient,
		authService: authService,
		logger:      logger,
		upgrader:    newUpgrader(),
	}
}

// newUpgrader 只接受同源连接；没有 Origin 的非浏览器客户端放行。
func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return strings.EqualFold(u.Host, r.Host)
		},
	}
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleConnection 升级连接，等待首条 auth 消息后转发该用户的导出通知。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	baseLog := h.logger.With(slog.String("client_ip", c.ClientIP()))

	userIDCh := make(chan uint, 1)
	errCh := make(chan error, 2)

	go h.readLoop(ctx, conn, userIDCh, errCh, cancel, baseLog)

	var userID uint
	select {
	case <-ctx.Done():
		return
	case err := <-errCh:
		baseLog.Warn("websocket authentication failed", slog.Any("error", err))
		return
	case userID = <-userIDCh:
	}

	userLog := baseLog.With(slog.Uint64("user_id", uint64(userID)))
	go h.subscribeLoop(ctx, conn, userID, errCh, cancel, userLog)

	select {
	case <-ctx.Done():
		userLog.Info("websocket connection closed")
	case err := <-errCh:
		userLog.Info("websocket connection closed", slog.Any("error", err))
	}
}

func (h *WsHandler) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	userIDCh chan<- uint,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	authenticated := false
	fail := func(code int, text string, err error) {
		writeClose(conn, code, text)
		errCh <- err
		cancel()
	}

	for {
		if ctx.Err() != nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			fail(websocket.CloseAbnormalClosure, "read error", fmt.Errorf("read message: %w", err))
			return
		}
		if authenticated {
			// 客户端无需再发消息，读循环只用于感知断开
			continue
		}

		var authMsg wsAuthMessage
		if err := json.Unmarshal(message, &authMsg); err != nil {
			fail(websocket.ClosePolicyViolation, "invalid auth payload", fmt.Errorf("decode auth payload: %w", err))
			return
		}
		if authMsg.Type != "auth" || authMsg.Token == "" {
			fail(websocket.ClosePolicyViolation, "auth required", errors.New("invalid auth message"))
			return
		}
		claims, err := h.authService.ValidateToken(authMsg.Token)
		if err != nil {
			fail(websocket.ClosePolicyViolation, "unauthorized", fmt.Errorf("validate token: %w", err))
			return
		}
		if claims.MustChangePassword {
			fail(websocket.ClosePolicyViolation, "password change required", errors.New("password change required"))
			return
		}

		authenticated = true
		userIDCh <- claims.UserID
		log.Info("websocket authenticated", slog.Uint64("user_id", uint64(claims.UserID)))
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}

func writePing(conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
}

func (h *WsHandler) subscribeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	userID uint,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	channel := worker.NotifyChannel(userID)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Info("subscribed to redis channel", slog.String("channel", channel))

	ch := pubsub.Channel()
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				errCh <- errors.New("pubsub channel closed")
				cancel()
				return
			}
			log.Debug("forwarding message to client", slog.String("channel", channel))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				errCh <- fmt.Errorf("write message: %w", err)
				cancel()
				return
			}
		case <-ticker.C:
			if err := writePing(conn); err != nil {
				errCh <- fmt.Errorf("write ping: %w", err)
				cancel()
				return
			}
		}
	}
}
