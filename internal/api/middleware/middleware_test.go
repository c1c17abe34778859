package middleware

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"phCompose/internal/auth"
)

func newAuthService(t *testing.T) *auth.Service {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pubDER, _ := x509.MarshalPKIXPublicKey(&key.PublicKey)
	svc, err := auth.NewService(
		pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}),
		pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}),
		time.Hour,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func protectedRouter(svc *auth.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(svc), RequirePasswordChangeCompletedMiddleware())
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.MustGet(UserIDKey)})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	svc := newAuthService(t)
	r := protectedRouter(svc)
	token, _ := svc.GenerateAccessToken(9, false)
	locked, _ := svc.GenerateAccessToken(10, true)

	cases := []struct {
		name    string
		header  string
		query   string
		upgrade bool
		want    int
	}{
		{"missing", "", "", false, http.StatusUnauthorized},
		{"bearer", "Bearer " + token, "", false, http.StatusOK},
		{"wrong scheme", "Basic " + token, "", false, http.StatusUnauthorized},
		{"garbage", "Bearer nope", "", false, http.StatusUnauthorized},
		{"query ignored without upgrade", "", token, false, http.StatusUnauthorized},
		{"query on websocket upgrade", "", token, true, http.StatusOK},
		{"password change pending", "Bearer " + locked, "", false, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := "/me"
			if tc.query != "" {
				target += "?token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.upgrade {
				req.Header.Set("Upgrade", "websocket")
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (body=%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestInternalSecretMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	newRouter := func(secret string) *gin.Engine {
		r := gin.New()
		r.GET("/internal", InternalSecretMiddleware(secret), func(c *gin.Context) { c.Status(http.StatusNoContent) })
		return r
	}
	do := func(r *gin.Engine, header string) int {
		req := httptest.NewRequest(http.MethodGet, "/internal", nil)
		if header != "" {
			req.Header.Set("X-Internal-Secret", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	r := newRouter("s3cret")
	if got := do(r, "s3cret"); got != http.StatusNoContent {
		t.Fatalf("valid secret: %d", got)
	}
	if got := do(r, "wrong"); got != http.StatusUnauthorized {
		t.Fatalf("wrong secret: %d", got)
	}
	if got := do(newRouter(""), "anything"); got != http.StatusInternalServerError {
		t.Fatalf("unconfigured secret: %d", got)
	}
	if got := do(newRouter(" , "), "anything"); got != http.StatusInternalServerError {
		t.Fatalf("blank secret list: %d", got)
	}

	rotating := newRouter("next-secret, s3cret")
	for _, secret := range []string{"next-secret", "s3cret"} {
		if got := do(rotating, secret); got != http.StatusNoContent {
			t.Fatalf("rotating secret %q: %d", secret, got)
		}
	}
	if got := do(rotating, "next-secret, s3cret"); got != http.StatusUnauthorized {
		t.Fatalf("raw secret list accepted: %d", got)
	}
}

func TestPasswordGateSignalsClient(t *testing.T) {
	svc := newAuthService(t)
	r := protectedRouter(svc)
	locked, _ := svc.GenerateAccessToken(10, true)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+locked)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden || w.Header().Get(PasswordChangeRequiredHeader) != "true" {
		t.Fatalf("status=%d header=%q", w.Code, w.Header().Get(PasswordChangeRequiredHeader))
	}
}

func TestCorrelationIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CorrelationIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetCorrelationID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "abc-123" || w.Header().Get(CorrelationIDHeader) != "abc-123" {
		t.Fatalf("incoming id not propagated: body=%q header=%q", w.Body.String(), w.Header().Get(CorrelationIDHeader))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Body.Len() == 0 || w.Body.String() != w.Header().Get(CorrelationIDHeader) {
		t.Fatalf("generated id missing: %q", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "bad id;level=ERROR")
	req.Header.Set(RequestIDHeader, "proxy-7")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "proxy-7" {
		t.Fatalf("unsafe id should fall back to the proxy request id, got %q", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, strings.Repeat("a", 65))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if len(w.Body.String()) != 36 {
		t.Fatalf("overlong id should be replaced by a uuid, got %q", w.Body.String())
	}
}

func TestSlogLoggerLevelsByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(CorrelationIDMiddleware(), SlogLoggerMiddleware(slog.New(slog.NewTextHandler(&buf, nil))))
	r.GET("/docs/:id", func(c *gin.Context) {
		LoggerFromContext(c).Info("handler")
		c.Status(http.StatusNotFound)
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/docs/42", nil)
	req.Header.Set(CorrelationIDHeader, "corr-1")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected handler and completion lines only:\n%s", buf.String())
	}
	for _, want := range []string{"correlation_id=corr-1", "resource_id=42", "route=/docs/:id"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("handler log missing %q: %s", want, lines[0])
		}
	}
	if !strings.Contains(lines[1], "level=WARN") || !strings.Contains(lines[1], "status=404") {
		t.Errorf("4xx completion should log at warn: %s", lines[1])
	}
}
