package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"phCompose/internal/errcode"
)

// Export notification statuses.
const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// ExportNotifyMessage 是通过 Redis Pub/Sub 转发给前端的导出结果。
// 注意：这里的字段名与前端解析保持一致。
type ExportNotifyMessage struct {
	Status        string               `json:"status"`
	DocumentID    uint                 `json:"document_id"`
	ExportID      string               `json:"export_id"`
	CorrelationID string               `json:"correlation_id"`
	PageCount     int                  `json:"page_count,omitempty"`
	ErrorCode     int                  `json:"error_code"`
	ErrorMessage  string               `json:"error_message"`
	Warnings      []errcode.Diagnostic `json:"warnings,omitempty"`
}

// Publisher is the part of *redis.Client used for notifications.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// NotifyChannel 返回某用户的通知频道。
func NotifyChannel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}

func publishNotify(ctx context.Context, pub Publisher, userID uint, msg ExportNotifyMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := NotifyChannel(userID)
	if err := pub.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
