package api

import (
	"net/http"
	"strings"
	"testing"

	"phCompose/internal/document"
	"phCompose/internal/errcode"
	"phCompose/internal/paper"
	"phCompose/internal/store"
)

func longRecord(entries int) store.Record {
	rec := store.NewRecord()
	rec.Document.PersonalInfo.FullName = "Grace Hopper"
	for i := 0; i < entries; i++ {
		rec.Document.AddExperience(document.Experience{
			Position:    "Engineer",
			Company:     "Navy",
			Description: strings.Repeat("Wrote compilers and taught machines to read English. ", 12),
		})
	}
	return rec
}

func TestLayoutReportsPagesAndFrame(t *testing.T) {
	env := newTestEnv(t)
	loaded := env.createDoc(1, longRecord(1))

	w := env.do(http.MethodPost, docPath(loaded.ID, "/layout"), map[string]any{"containerWidth": 426}, env.token(1))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	res := decode[layoutResponse](t, w)
	if res.TemplateID != document.DefaultTemplateID || res.PageCount != 1 || len(res.PageBreakOffsets) != 0 {
		t.Fatalf("layout = %+v", res)
	}
	if res.Frame.Scale <= 0 || res.Frame.Scale >= 1 {
		t.Fatalf("scale = %v", res.Frame.Scale)
	}
	if want := paper.HeightPx * res.Frame.Scale; res.Frame.Height != want {
		t.Fatalf("frame height = %v, want %v", res.Frame.Height, want)
	}
}

func TestLayoutOfUnsavedRecordSpillsOntoMorePages(t *testing.T) {
	env := newTestEnv(t)
	loaded := env.createDoc(1, store.NewRecord())

	rec := longRecord(20)
	rec.Document.TemplateID = "retired"
	w := env.do(http.MethodPost, docPath(loaded.ID, "/layout"), map[string]any{"containerWidth": 2000, "record": rec}, env.token(1))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	res := decode[layoutResponse](t, w)
	if res.PageCount < 2 || len(res.PageBreakOffsets) != res.PageCount-1 {
		t.Fatalf("layout = %+v", res)
	}
	for i, off := range res.PageBreakOffsets {
		if off != (i+1)*paper.HeightPx {
			t.Fatalf("offset %d = %d", i, off)
		}
	}
	if res.Frame.Scale != 1 {
		t.Fatalf("wide container should not scale: %v", res.Frame.Scale)
	}
	if res.TemplateID != document.DefaultTemplateID {
		t.Fatalf("template = %q", res.TemplateID)
	}
	found := false
	for _, d := range res.Diagnostics {
		found = found || d.Code == errcode.UnknownTemplate
	}
	if !found {
		t.Fatalf("missing unknown template diagnostic: %+v", res.Diagnostics)
	}
}

func TestLayoutValidatesWidth(t *testing.T) {
	env := newTestEnv(t)
	loaded := env.createDoc(1, store.NewRecord())
	w := env.do(http.MethodPost, docPath(loaded.ID, "/layout"), map[string]any{"containerWidth": 0}, env.token(1))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHTMLRendersDocument(t *testing.T) {
	env := newTestEnv(t)
	loaded := env.createDoc(1, longRecord(1))
	w := env.do(http.MethodGet, docPath(loaded.ID, "/html"), nil, env.token(1))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Grace Hopper") {
		t.Fatal("rendered html lacks the document content")
	}
}
