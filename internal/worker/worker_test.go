package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"phCompose/internal/database"
	"phCompose/internal/errcode"
	"phCompose/internal/export"
	"phCompose/internal/storage"
	"phCompose/internal/store"
	"phCompose/internal/tasks"
	"phCompose/internal/template"
)

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjects) Put(_ context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeObjects) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeObjects) PresignedURL(_ context.Context, key string, _ time.Duration, _ string) (string, error) {
	return "https://example.invalid/" + key, nil
}

func (f *fakeObjects) DeletePrefix(_ context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			delete(f.objects, k)
		}
	}
	return nil
}

type fakePublisher struct {
	channels []string
	messages [][]byte
}

func (p *fakePublisher) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	p.channels = append(p.channels, channel)
	p.messages = append(p.messages, message.([]byte))
	return redis.NewIntResult(1, nil)
}

type fakeShooter struct{ layouts []*template.Layout }

func (s *fakeShooter) Thumbnail(_ context.Context, layout *template.Layout, _ int) ([]byte, error) {
	s.layouts = append(s.layouts, layout)
	return []byte{0xff, 0xd8, 0xff}, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExportHandlerStoresPDFAndNotifies(t *testing.T) {
	ctx := context.Background()
	repo := store.NewRepository(newTestDB(t))
	rec := store.NewRecord()
	rec.Document.PersonalInfo.FullName = "Ada Lovelace"
	rec.Document.TemplateID = "retired"
	created, err := repo.Create(ctx, 42, rec)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	objects := newFakeObjects()
	pub := &fakePublisher{}
	h := NewExportHandler(repo, export.NewNative(template.Default(nil)), objects, pub, discardLogger())

	task, err := tasks.NewDocumentExportTask(created.ID, "exp-1", "corr-1")
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	if err := h.ProcessTask(ctx, task); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}

	key := storage.ExportKey(42, created.ID, "exp-1")
	if !bytes.HasPrefix(objects.objects[key], []byte("%PDF")) || objects.types[key] != export.ContentTypePDF {
		t.Fatalf("pdf not uploaded under %q", key)
	}

	loaded, err := repo.Load(ctx, created.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Status != database.StatusCompleted || loaded.PdfKey != key {
		t.Fatalf("export not recorded: status=%q key=%q", loaded.Status, loaded.PdfKey)
	}

	if len(pub.channels) != 1 || pub.channels[0] != NotifyChannel(42) {
		t.Fatalf("channels = %v", pub.channels)
	}
	var msg ExportNotifyMessage
	if err := json.Unmarshal(pub.messages[0], &msg); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if msg.Status != StatusCompleted || msg.PageCount != 1 || msg.ExportID != "exp-1" || msg.CorrelationID != "corr-1" {
		t.Fatalf("unexpected notification: %+v", msg)
	}
	if msg.ErrorCode != errcode.UnknownTemplate || len(msg.Warnings) != 1 {
		t.Fatalf("template fallback not surfaced: %+v", msg)
	}
}

func TestExportHandlerSkipsMissingDocument(t *testing.T) {
	repo := store.NewRepository(newTestDB(t))
	pub := &fakePublisher{}
	h := NewExportHandler(repo, export.NewNative(template.Default(nil)), newFakeObjects(), pub, discardLogger())

	task, _ := tasks.NewDocumentExportTask(999, "exp", "corr")
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("missing document should not be retried: %v", err)
	}
	if len(pub.messages) != 0 {
		t.Fatal("nothing should be published for a missing document")
	}
}

func TestExportHandlerRejectsCorruptPayload(t *testing.T) {
	h := NewExportHandler(store.NewRepository(newTestDB(t)), nil, newFakeObjects(), &fakePublisher{}, discardLogger())
	err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeDocumentExport, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("err = %v, want SkipRetry", err)
	}
}

func TestTemplatePreviewHandler(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	objects := newFakeObjects()
	shooter := &fakeShooter{}
	h := NewTemplatePreviewHandler(db, template.Default(nil), shooter, objects, discardLogger())

	for i := 0; i < 2; i++ {
		task, _ := tasks.NewTemplatePreviewTask("modern", "corr")
		if err := h.ProcessTask(ctx, task); err != nil {
			t.Fatalf("ProcessTask: %v", err)
		}
	}
	if len(shooter.layouts) != 2 || shooter.layouts[0].TemplateID != "modern" {
		t.Fatalf("unexpected layouts rendered: %d", len(shooter.layouts))
	}
	if _, ok := objects.objects[storage.TemplatePreviewKey("modern")]; !ok {
		t.Fatal("thumbnail not uploaded")
	}

	var rows []database.TemplatePreview
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 || rows[0].ImageKey != storage.TemplatePreviewKey("modern") {
		t.Fatalf("preview rows = %+v", rows)
	}

	unknown, _ := tasks.NewTemplatePreviewTask("retired", "corr")
	if err := h.ProcessTask(ctx, unknown); err != nil {
		t.Fatalf("unknown template should be skipped: %v", err)
	}
	if len(shooter.layouts) != 2 {
		t.Fatal("unknown template should not be rendered")
	}
}
