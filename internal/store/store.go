// Package store persists documents together with their section state.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"phCompose/internal/database"
	"phCompose/internal/document"
	"phCompose/internal/section"
)

var (
	// ErrNotFound is returned when no document has the requested id.
	ErrNotFound = errors.New("document not found")
	// ErrCorrupt is returned when a stored blob cannot be decoded.
	ErrCorrupt = errors.New("document content corrupt")
)

// Record is the persisted blob: content plus section visibility and order.
type Record struct {
	Document *document.Document `json:"document"`
	Sections section.State      `json:"sections"`
}

// NewRecord returns a record for an empty document with default section state.
func NewRecord() Record {
	d := document.New()
	return Record{Document: d, Sections: section.Defaults(d.SectionKeys())}
}

// Loaded is a record read from the database. Raw holds the stored bytes exactly as read.
type Loaded struct {
	ID     uint
	UserID uint
	Status string
	PdfKey string
	Raw    []byte
	Record Record

	// encoding of Record right after decoding, used to detect edits
	snapshot []byte
}

// Changed reports whether Record differs from what was loaded.
func (l *Loaded) Changed() (bool, error) {
	cur, err := json.Marshal(l.Record)
	if err != nil {
		return false, fmt.Errorf("encode record: %w", err)
	}
	return !bytes.Equal(cur, l.snapshot), nil
}

// Summary is one row of a document listing.
type Summary struct {
	ID         uint   `json:"id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	TemplateID string `json:"templateId"`
}

// Repository reads and writes documents through gorm.
type Repository struct {
	db *gorm.DB
}

// NewRepository wraps db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Load reads a document. The record is returned as stored: no migration or reconciliation is applied.
func (r *Repository) Load(ctx context.Context, id uint) (*Loaded, error) {
	var row database.Document
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load document %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("load document %d: %w", id, err)
	}
	return decode(row)
}

// Save writes l back. When the record is unchanged the originally loaded bytes are written, so a
// load/save cycle leaves the stored blob byte-identical.
func (r *Repository) Save(ctx context.Context, l *Loaded) (uint, error) {
	if l.Record.Document == nil {
		return 0, fmt.Errorf("save document %d: %w", l.ID, ErrCorrupt)
	}
	changed, err := l.Changed()
	if err != nil {
		return 0, err
	}
	raw := l.Raw
	if changed || raw == nil {
		if raw, err = json.Marshal(l.Record); err != nil {
			return 0, fmt.Errorf("encode record: %w", err)
		}
	}

	updates := map[string]any{
		"title":   l.Record.Document.Title,
		"content": datatypes.JSON(raw),
	}
	res := r.db.WithContext(ctx).Model(&database.Document{}).Where("id = ?", l.ID).Updates(updates)
	if res.Error != nil {
		return 0, fmt.Errorf("save document %d: %w", l.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("save document %d: %w", l.ID, ErrNotFound)
	}

	l.Raw = raw
	if changed {
		l.snapshot = raw
	}
	return l.ID, nil
}

// Create inserts a new document owned by userID.
func (r *Repository) Create(ctx context.Context, userID uint, rec Record) (*Loaded, error) {
	if rec.Document == nil {
		return nil, fmt.Errorf("create document: %w", ErrCorrupt)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	row := database.Document{
		Title:   rec.Document.Title,
		Content: datatypes.JSON(raw),
		UserID:  userID,
		Status:  database.StatusDraft,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return decode(row)
}

// List returns the documents of userID, newest first.
func (r *Repository) List(ctx context.Context, userID uint) ([]Summary, error) {
	var rows []database.Document
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		s := Summary{ID: row.ID, Title: row.Title, Status: row.Status}
		var head struct {
			Document struct {
				TemplateID string `json:"templateId"`
			} `json:"document"`
		}
		if err := json.Unmarshal(row.Content, &head); err == nil {
			s.TemplateID = head.Document.TemplateID
		}
		out = append(out, s)
	}
	return out, nil
}

// Delete removes a document.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&database.Document{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete document %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete document %d: %w", id, ErrNotFound)
	}
	return nil
}

// SetExport records the export status and, once completed, the object key of the PDF.
func (r *Repository) SetExport(ctx context.Context, id uint, status, pdfKey string) error {
	updates := map[string]any{"status": status}
	if pdfKey != "" {
		updates["pdf_key"] = pdfKey
	}
	if err := r.db.WithContext(ctx).Model(&database.Document{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("set export status of document %d: %w", id, err)
	}
	return nil
}

func decode(row database.Document) (*Loaded, error) {
	raw := []byte(row.Content)
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode document %d: %w: %w", row.ID, ErrCorrupt, err)
	}
	if rec.Document == nil {
		return nil, fmt.Errorf("decode document %d: %w", row.ID, ErrCorrupt)
	}
	snapshot, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return &Loaded{
		ID:       row.ID,
		UserID:   row.UserID,
		Status:   row.Status,
		PdfKey:   row.PdfKey,
		Raw:      raw,
		Record:   rec,
		snapshot: snapshot,
	}, nil
}
