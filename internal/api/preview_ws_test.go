package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"phCompose/internal/errcode"
	"phCompose/internal/store"
)

func dialPreview(t *testing.T, env *testEnv, id uint, token, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + docPath(id, "/preview") + "?token=" + token + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial preview: %v (status %d)", err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readPreview(t *testing.T, conn *websocket.Conn) previewServerMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg previewServerMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read preview message: %v", err)
	}
	return msg
}

func TestPreviewStreamsLayoutAndRescales(t *testing.T) {
	env := newTestEnv(t)
	loaded := env.createDoc(1, longRecord(1))
	conn := dialPreview(t, env, loaded.ID, env.token(1), "&width=2000")

	first := readPreview(t, conn)
	if first.Type != "layout" || first.Pages == nil || first.Pages.PageCount != 1 || first.Frame.Scale != 1 {
		t.Fatalf("first snapshot = %+v", first)
	}

	if err := conn.WriteJSON(map[string]any{"type": "resize", "width": 426}); err != nil {
		t.Fatalf("write resize: %v", err)
	}
	resized := readPreview(t, conn)
	if resized.Frame == nil || resized.Frame.Scale >= 1 || resized.Pages.PageCount != 1 {
		t.Fatalf("resized snapshot = %+v", resized)
	}

	long := longRecord(20)
	if err := conn.WriteJSON(map[string]any{"type": "content", "record": long}); err != nil {
		t.Fatalf("write content: %v", err)
	}
	grown := readPreview(t, conn)
	if grown.Pages == nil || grown.Pages.PageCount < 2 {
		t.Fatalf("content snapshot = %+v", grown)
	}

	// 预览内容不落库
	stored, _ := env.repo.Load(t.Context(), loaded.ID)
	if len(stored.Record.Document.Experience) != 1 {
		t.Fatal("preview edits were persisted")
	}
}

// readLayoutUntil reads layout messages until ok accepts one.
func readLayoutUntil(t *testing.T, conn *websocket.Conn, ok func(previewServerMessage) bool) previewServerMessage {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg := readPreview(t, conn)
		if msg.Type == "layout" && ok(msg) {
			return msg
		}
	}
	t.Fatal("no matching layout message")
	return previewServerMessage{}
}

func TestPreviewDiagnosticsTrackContent(t *testing.T) {
	env := newTestEnv(t)
	loaded := env.createDoc(1, longRecord(1))
	conn := dialPreview(t, env, loaded.ID, env.token(1), "")
	readPreview(t, conn)

	rec := longRecord(1)
	rec.Document.TemplateID = "retired"
	if err := conn.WriteJSON(map[string]any{"type": "content", "record": rec}); err != nil {
		t.Fatalf("write content: %v", err)
	}
	msg := readLayoutUntil(t, conn, func(m previewServerMessage) bool { return len(m.Diagnostics) > 0 })
	if d := msg.Diagnostics[0]; d.Code != errcode.UnknownTemplate || d.Key != "retired" {
		t.Fatalf("diagnostics = %+v", msg.Diagnostics)
	}

	rec.Document.TemplateID = "classic"
	if err := conn.WriteJSON(map[string]any{"type": "content", "record": rec}); err != nil {
		t.Fatalf("write content: %v", err)
	}
	readLayoutUntil(t, conn, func(m previewServerMessage) bool { return len(m.Diagnostics) == 0 })
}

func TestPreviewReportsProtocolErrors(t *testing.T) {
	env := newTestEnv(t)
	loaded := env.createDoc(1, store.NewRecord())
	conn := dialPreview(t, env, loaded.ID, env.token(1), "")
	readPreview(t, conn)

	if err := conn.WriteJSON(map[string]any{"type": "resize", "width": -5}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readPreview(t, conn)
	if msg.Type != "error" || msg.Error == "" {
		t.Fatalf("expected protocol error, got %+v", msg)
	}
}

func TestPreviewRejectsOtherUsers(t *testing.T) {
	env := newTestEnv(t)
	loaded := env.createDoc(1, store.NewRecord())
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + docPath(loaded.ID, "/preview") + "?token=" + env.token(2)
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial should fail for another user's document")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Fatalf("response = %+v", resp)
	}
}
