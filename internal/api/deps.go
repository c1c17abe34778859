package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"phCompose/internal/api/middleware"
	"phCompose/internal/auth"
	"phCompose/internal/config"
	"phCompose/internal/export"
	"phCompose/internal/imaging"
	"phCompose/internal/pagination"
	"phCompose/internal/storage"
	"phCompose/internal/store"
	"phCompose/internal/template"
)

// TaskQueue is the part of *asynq.Client the handlers use.
type TaskQueue interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Deps bundles everything the HTTP layer needs.
type Deps struct {
	DB             *gorm.DB
	Redis          *redis.Client
	LoginGuard     LoginGuard
	LoginLimits    LoginLimits
	Queue          TaskQueue
	Objects        storage.ObjectStore
	Auth           *auth.Service
	Registry       *template.Registry
	Exporter       export.Exporter
	Surfaces       pagination.SurfaceFactory
	Scanner        Scanner
	Normalizer     imaging.Normalizer
	Layout         config.LayoutConfig
	PresignExpiry  time.Duration
	InternalSecret string
	Logger         *slog.Logger
}

var errInvalidDocumentID = errors.New("invalid document id")

// ErrInfected is returned by a Scanner when the upload carries malware.
var ErrInfected = errors.New("malicious file detected")

// Scanner checks uploads before they are decoded.
type Scanner interface {
	Scan(ctx context.Context, r io.Reader) error
}

type clamdScanner struct {
	addr string
}

// NewScanner returns a clamd-backed scanner, or one that accepts everything when addr is empty.
func NewScanner(addr string) Scanner {
	if addr == "" {
		return nopScanner{}
	}
	return clamdScanner{addr: addr}
}

func (s clamdScanner) Scan(ctx context.Context, r io.Reader) error {
	abort := make(chan bool)
	defer close(abort)

	results, err := clamd.NewClamd(s.addr).ScanStream(r, abort)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-results:
			if !ok {
				return nil
			}
			switch res.Status {
			case clamd.RES_OK:
			case clamd.RES_FOUND:
				return ErrInfected
			default:
				return errors.New("clamd: " + res.Description)
			}
		}
	}
}

type nopScanner struct{}

func (nopScanner) Scan(context.Context, io.Reader) error { return nil }

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	default:
		return 0, false
	}
}

// loadOwned loads the document named by the :id parameter and checks it belongs to the caller.
// It writes the error response itself and returns nil on failure.
func loadOwned(c *gin.Context, docs *store.Repository) *store.Loaded {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return nil
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, errInvalidDocumentID.Error())
		return nil
	}

	loaded, err := docs.Load(c.Request.Context(), uint(id))
	switch {
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, "document not found")
		return nil
	case err != nil:
		middleware.LoggerFromContext(c).Error("load document failed", slog.Any("error", err))
		Internal(c, "failed to load document")
		return nil
	case loaded.UserID != userID:
		// 不暴露他人文档是否存在
		NotFound(c, "document not found")
		return nil
	}
	return loaded
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
