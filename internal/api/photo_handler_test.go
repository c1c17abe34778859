package api

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"phCompose/internal/errcode"
	"phCompose/internal/store"
)

func (e *testEnv) upload(path, token, filename string, content []byte) *httptest.ResponseRecorder {
	e.t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		e.t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		e.t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		e.t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestPhotoUploadNormalizesToJPEG(t *testing.T) {
	env := newTestEnv(t)
	loaded := env.createDoc(1, store.NewRecord())

	w := env.upload(docPath(loaded.ID, "/photo"), env.token(1), "me.png", pngBytes(t, 640, 480))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}

	stored, err := env.repo.Load(context.Background(), loaded.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	photo := stored.Record.Document.PersonalInfo.Photo
	if !bytes.HasPrefix(photo, []byte{0xff, 0xd8}) {
		t.Fatalf("photo is not a JPEG: % x", photo[:min(4, len(photo))])
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(photo))
	if err != nil {
		t.Fatalf("decode stored photo: %v", err)
	}
	if cfg.Width > 300 || cfg.Height > 300 {
		t.Fatalf("photo not bounded: %dx%d", cfg.Width, cfg.Height)
	}

	if w := env.do(http.MethodDelete, docPath(loaded.ID, "/photo"), nil, env.token(1)); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	stored, _ = env.repo.Load(context.Background(), loaded.ID)
	if len(stored.Record.Document.PersonalInfo.Photo) != 0 {
		t.Fatal("photo not removed")
	}
}

func TestPhotoUploadRejectsCorruptImageAndKeepsDocument(t *testing.T) {
	env := newTestEnv(t)
	rec := store.NewRecord()
	rec.Document.PersonalInfo.Photo = []byte{0xff, 0xd8, 0xff, 0xe0}
	loaded := env.createDoc(1, rec)
	before, _ := env.repo.Load(context.Background(), loaded.ID)

	w := env.upload(docPath(loaded.ID, "/photo"), env.token(1), "broken.png", []byte("\x89PNG\r\n\x1a\nnot really"))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	body := decode[struct {
		Code int `json:"code"`
	}](t, w)
	if body.Code != errcode.DecodeError {
		t.Fatalf("code = %d", body.Code)
	}

	after, _ := env.repo.Load(context.Background(), loaded.ID)
	if !bytes.Equal(before.Raw, after.Raw) {
		t.Fatal("document changed after a rejected upload")
	}
}

func TestPhotoUploadRequiresFile(t *testing.T) {
	env := newTestEnv(t)
	loaded := env.createDoc(1, store.NewRecord())
	w := env.do(http.MethodPost, docPath(loaded.ID, "/photo"), nil, env.token(1))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}
