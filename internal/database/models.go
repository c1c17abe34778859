package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Export statuses of a Document.
const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Username           string     `gorm:"uniqueIndex;size:64"`
	PasswordHash       string     `gorm:"size:255"`
	MustChangePassword bool       `gorm:"default:false"`
	Documents          []Document `gorm:"constraint:OnDelete:CASCADE"`
}

// Document 保存一份排版文档。
// Content 使用 json 而非 jsonb：jsonb 会重排键并丢弃空白，无法保证字节级往返。
type Document struct {
	gorm.Model
	Title   string         `gorm:"size:255"`
	Content datatypes.JSON `gorm:"type:json"`
	UserID  uint           `gorm:"index"`
	User    User           `gorm:"constraint:OnDelete:CASCADE"`
	PdfKey  string         `gorm:"size:512"`
	Status  string         `gorm:"size:32"`
}

// TemplatePreview 记录模板缩略图在对象存储中的位置。
type TemplatePreview struct {
	gorm.Model
	TemplateID string `gorm:"uniqueIndex;size:64"`
	ImageKey   string `gorm:"size:512"`
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{&User{}, &Document{}, &TemplatePreview{}}
}
