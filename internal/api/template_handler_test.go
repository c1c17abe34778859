package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/hibiken/asynq"

	"phCompose/internal/database"
	"phCompose/internal/storage"
	"phCompose/internal/tasks"
)

func TestListTemplatesIncludesPreviewLinks(t *testing.T) {
	env := newTestEnv(t)
	key := storage.TemplatePreviewKey("modern")
	if err := env.db.Create(&database.TemplatePreview{TemplateID: "modern", ImageKey: key}).Error; err != nil {
		t.Fatalf("seed preview: %v", err)
	}

	w := env.do(http.MethodGet, "/v1/templates", nil, env.token(1))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	items := decode[[]templateListItem](t, w)
	if len(items) < 2 || items[0].ID != "classic" {
		t.Fatalf("templates = %+v", items)
	}
	for _, it := range items {
		if it.Name == "" || len(it.Zones) == 0 {
			t.Fatalf("incomplete template %+v", it)
		}
		switch it.ID {
		case "modern":
			if !strings.Contains(it.PreviewImageURL, key) {
				t.Fatalf("modern preview url = %q", it.PreviewImageURL)
			}
		default:
			if it.PreviewImageURL != "" {
				t.Fatalf("%s has an unexpected preview url", it.ID)
			}
		}
	}
}

func TestGeneratePreviewIsInternal(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(http.MethodPost, "/internal/templates/modern/preview", nil, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("without secret status = %d", w.Code)
	}
	w := env.do(http.MethodPost, "/internal/templates/modern/preview", nil, "", "X-Internal-Secret", testInternalSecret)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if len(env.queue.tasks) != 1 || env.queue.tasks[0].Type() != tasks.TypeTemplatePreview {
		t.Fatalf("queued = %+v", env.queue.tasks)
	}

	env.queue.err = asynq.ErrTaskIDConflict
	if w := env.do(http.MethodPost, "/internal/templates/modern/preview", nil, "", "X-Internal-Secret", testInternalSecret); w.Code != http.StatusAccepted {
		t.Fatalf("duplicate request status = %d", w.Code)
	}
	if w := env.do(http.MethodPost, "/internal/templates/nope/preview", nil, "", "X-Internal-Secret", testInternalSecret); w.Code != http.StatusNotFound {
		t.Fatalf("unknown template status = %d", w.Code)
	}
}

func TestMetricsAndHealth(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(http.MethodGet, "/health", nil, ""); w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/metrics", nil, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("metrics without secret = %d", w.Code)
	}
	env.do(http.MethodGet, "/wp-login.php", nil, "")
	w := env.do(http.MethodGet, "/metrics", nil, "", "X-Internal-Secret", testInternalSecret)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "phcompose_http_requests_total") || !strings.Contains(body, `route="unmatched"`) {
		t.Fatal("unmatched request not recorded under a fixed label")
	}
	if strings.Contains(body, `route="/health"`) {
		t.Fatal("health probes should not be recorded")
	}
}
