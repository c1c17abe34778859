package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeDocumentExport  = "document:export"
	TypeTemplatePreview = "template:preview"
)

// DocumentExportPayload 描述一次异步导出。
type DocumentExportPayload struct {
	DocumentID    uint   `json:"document_id"`
	ExportID      string `json:"export_id"`
	CorrelationID string `json:"correlation_id"`
}

// TemplatePreviewPayload 描述一次模板缩略图渲染。
type TemplatePreviewPayload struct {
	TemplateID    string `json:"template_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewDocumentExportTask 构造一个新的文档导出任务。
func NewDocumentExportTask(documentID uint, exportID, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(DocumentExportPayload{
		DocumentID:    documentID,
		ExportID:      exportID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal export payload: %w", err)
	}
	return asynq.NewTask(TypeDocumentExport, payload, asynq.MaxRetry(3)), nil
}

// NewTemplatePreviewTask 构造模板缩略图任务。同一模板同时只排队一个。
func NewTemplatePreviewTask(templateID, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(TemplatePreviewPayload{
		TemplateID:    templateID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal template preview payload: %w", err)
	}
	return asynq.NewTask(TypeTemplatePreview, payload, asynq.TaskID("template-preview:"+templateID), asynq.MaxRetry(1)), nil
}
