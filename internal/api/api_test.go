package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"log/slog"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"phCompose/internal/auth"
	"phCompose/internal/config"
	"phCompose/internal/database"
	"phCompose/internal/export"
	"phCompose/internal/imaging"
	"phCompose/internal/measure"
	"phCompose/internal/pagination"
	"phCompose/internal/paper"
	"phCompose/internal/store"
	"phCompose/internal/template"
)

const testInternalSecret = "s3cret"

type fakeObjects struct {
	mu       sync.Mutex
	objects  map[string][]byte
	prefixes []string
}

func (f *fakeObjects) Put(_ context.Context, key string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeObjects) PresignedURL(_ context.Context, key string, _ time.Duration, filename string) (string, error) {
	return "https://objects.example.invalid/" + key + "?name=" + filename, nil
}

func (f *fakeObjects) DeletePrefix(_ context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes = append(f.prefixes, prefix)
	return nil
}

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

// fakeGuard 模拟登录限流用到的 Redis 命令。
type fakeGuard struct {
	counts map[string]int64
	locked map[string]bool
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{counts: map[string]int64{}, locked: map[string]bool{}}
}

func (g *fakeGuard) Incr(_ context.Context, key string) *redis.IntCmd {
	g.counts[key]++
	return redis.NewIntResult(g.counts[key], nil)
}

func (g *fakeGuard) Expire(context.Context, string, time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (g *fakeGuard) TTL(_ context.Context, key string) *redis.DurationCmd {
	if g.locked[key] {
		return redis.NewDurationResult(time.Minute, nil)
	}
	return redis.NewDurationResult(-2, nil)
}

func (g *fakeGuard) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(g.counts, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (g *fakeGuard) Set(_ context.Context, key string, _ any, _ time.Duration) *redis.StatusCmd {
	g.locked[key] = true
	return redis.NewStatusResult("OK", nil)
}

type testEnv struct {
	t       *testing.T
	router  *gin.Engine
	db      *gorm.DB
	repo    *store.Repository
	auth    *auth.Service
	objects *fakeObjects
	queue   *fakeQueue
	guard   *fakeGuard
}

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

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	registry := template.Default(nil)
	env := &testEnv{
		t:       t,
		db:      db,
		repo:    store.NewRepository(db),
		auth:    newAuthService(t),
		objects: &fakeObjects{objects: map[string][]byte{}},
		queue:   &fakeQueue{},
		guard:   newFakeGuard(),
	}
	deps := Deps{
		DB:         db,
		LoginGuard: env.guard,
		LoginLimits: LoginLimits{
			PerHour:       10,
			LockThreshold: 2,
			LockTTL:       time.Minute,
		},
		Queue:    env.queue,
		Objects:  env.objects,
		Auth:     env.auth,
		Registry: registry,
		Exporter: export.NewNative(registry),
		Surfaces: func(context.Context) (pagination.Surface, error) {
			return measure.NewSurface(paper.WidthPx), nil
		},
		Normalizer:     imaging.Normalizer{},
		Layout:         config.LayoutConfig{ViewportMargin: 32},
		PresignExpiry:  time.Minute,
		InternalSecret: testInternalSecret,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	env.router = NewRouter(deps)
	RegisterRoutes(env.router, deps)
	return env
}

func (e *testEnv) token(userID uint) string {
	e.t.Helper()
	tok, err := e.auth.GenerateAccessToken(userID, false)
	if err != nil {
		e.t.Fatalf("token: %v", err)
	}
	return tok
}

func (e *testEnv) do(method, path string, body any, token string, headers ...string) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createDoc(userID uint, rec store.Record) *store.Loaded {
	e.t.Helper()
	loaded, err := e.repo.Create(context.Background(), userID, rec)
	if err != nil {
		e.t.Fatalf("create document: %v", err)
	}
	return loaded
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func docPath(id uint, suffix string) string {
	return "/v1/documents/" + strconv.FormatUint(uint64(id), 10) + suffix
}
