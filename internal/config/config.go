package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Layout   LayoutConfig   `mapstructure:"layout"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Imaging  ImagingConfig  `mapstructure:"imaging"`
	Clamd    ClamdConfig    `mapstructure:"clamd"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int    `mapstructure:"port"`
	InternalSecret string `mapstructure:"internal_secret"`
}

// DatabaseConfig contains connection options. Driver is "postgres" (default) or "sqlite", in
// which case Name is the database file and the network fields are ignored.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr 返回 host:port 形式的地址。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string        `mapstructure:"endpoint"`
	PublicEndpoint   string        `mapstructure:"public_endpoint"`
	AccessKeyID      string        `mapstructure:"access_key_id"`
	SecretAccessKey  string        `mapstructure:"secret_access_key"`
	UseSSL           bool          `mapstructure:"use_ssl"`
	PublicUseSSL     bool          `mapstructure:"public_use_ssl"`
	Bucket           string        `mapstructure:"bucket"`
	Region           string        `mapstructure:"region"`
	BucketLookup     string        `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool          `mapstructure:"auto_create_bucket"`
	PresignExpiry    time.Duration `mapstructure:"presign_expiry"`
}

// AuthConfig 包含 JWT 密钥与有效期。
type AuthConfig struct {
	PrivateKeyPEM string        `mapstructure:"private_key_pem"`
	PublicKeyPEM  string        `mapstructure:"public_key_pem"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`

	LoginRateLimitPerHour int           `mapstructure:"login_rate_limit_per_hour"`
	LoginLockThreshold    int           `mapstructure:"login_lock_threshold"`
	LoginLockTTL          time.Duration `mapstructure:"login_lock_ttl"`
}

// LayoutConfig controls live pagination.
type LayoutConfig struct {
	// Surface selects the measuring surface: "native" (in-process font metrics) or "chromium".
	Surface        string        `mapstructure:"surface"`
	ViewportMargin float64       `mapstructure:"viewport_margin"`
	Debounce       time.Duration `mapstructure:"debounce"`
}

// BrowserConfig configures the headless Chromium used for printing and thumbnails.
type BrowserConfig struct {
	Bin     string        `mapstructure:"bin"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ImagingConfig bounds photo normalization.
type ImagingConfig struct {
	MaxSide   int `mapstructure:"max_side"`
	Quality   int `mapstructure:"quality"`
	MaxPixels int `mapstructure:"max_pixels"`
}

// ClamdConfig 配置上传文件的病毒扫描。地址为空时跳过扫描。
type ClamdConfig struct {
	Address string `mapstructure:"address"`
}

const (
	SurfaceNative   = "native"
	SurfaceChromium = "chromium"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// PEM 通过环境变量传入时常以字面量 \n 分隔行。
	cfg.Auth.PrivateKeyPEM = strings.ReplaceAll(cfg.Auth.PrivateKeyPEM, `\n`, "\n")
	cfg.Auth.PublicKeyPEM = strings.ReplaceAll(cfg.Auth.PublicKeyPEM, `\n`, "\n")

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "phcompose")
	v.SetDefault("database.user", "phcompose")
	v.SetDefault("database.password", "phcompose")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "documents")
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("minio.presign_expiry", 15*time.Minute)
	v.SetDefault("auth.access_ttl", 2*time.Hour)
	v.SetDefault("auth.login_rate_limit_per_hour", 10)
	v.SetDefault("auth.login_lock_threshold", 5)
	v.SetDefault("auth.login_lock_ttl", 15*time.Minute)
	v.SetDefault("layout.surface", SurfaceNative)
	v.SetDefault("layout.viewport_margin", 32.0)
	v.SetDefault("layout.debounce", 150*time.Millisecond)
	v.SetDefault("browser.timeout", 30*time.Second)
	v.SetDefault("imaging.max_side", 300)
	v.SetDefault("imaging.quality", 80)
	v.SetDefault("imaging.max_pixels", 40_000_000)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                       "API_PORT",
		"api.internal_secret":            "INTERNAL_API_SECRET",
		"database.driver":                "DATABASE_DRIVER",
		"database.host":                  "DATABASE_HOST",
		"database.port":                  "DATABASE_PORT",
		"database.name":                  "POSTGRES_DB",
		"database.user":                  "POSTGRES_USER",
		"database.password":              "POSTGRES_PASSWORD",
		"database.sslmode":               "DATABASE_SSLMODE",
		"redis.host":                     "REDIS_HOST",
		"redis.port":                     "REDIS_PORT",
		"minio.endpoint":                 "MINIO_ENDPOINT",
		"minio.public_endpoint":          "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":            "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":        "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                  "MINIO_USE_SSL",
		"minio.public_use_ssl":           "MINIO_PUBLIC_USE_SSL",
		"minio.bucket":                   "MINIO_BUCKET",
		"minio.region":                   "MINIO_REGION",
		"minio.bucket_lookup":            "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":       "MINIO_AUTO_CREATE_BUCKET",
		"minio.presign_expiry":           "MINIO_PRESIGN_EXPIRY",
		"auth.private_key_pem":           "JWT_PRIVATE_KEY",
		"auth.public_key_pem":            "JWT_PUBLIC_KEY",
		"auth.access_ttl":                "JWT_ACCESS_TTL",
		"auth.login_rate_limit_per_hour": "LOGIN_RATE_LIMIT_PER_HOUR",
		"auth.login_lock_threshold":      "LOGIN_LOCK_THRESHOLD",
		"auth.login_lock_ttl":            "LOGIN_LOCK_TTL",
		"layout.surface":                 "LAYOUT_SURFACE",
		"layout.viewport_margin":         "LAYOUT_VIEWPORT_MARGIN",
		"layout.debounce":                "LAYOUT_DEBOUNCE",
		"browser.bin":                    "CHROME_BIN",
		"browser.timeout":                "BROWSER_TIMEOUT",
		"imaging.max_side":               "IMAGING_MAX_SIDE",
		"imaging.quality":                "IMAGING_QUALITY",
		"imaging.max_pixels":             "IMAGING_MAX_PIXELS",
		"clamd.address":                  "CLAMD_ADDRESS",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if err := validateDatabase(cfg.Database); err != nil {
		return err
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	switch cfg.MinIO.BucketLookup {
	case "", "auto", "dns", "path":
	default:
		return fmt.Errorf("minio bucket lookup %q must be auto, dns or path", cfg.MinIO.BucketLookup)
	}
	if cfg.Auth.AccessTTL <= 0 {
		return errors.New("auth access ttl must be positive")
	}
	if cfg.Auth.LoginRateLimitPerHour <= 0 || cfg.Auth.LoginLockThreshold <= 0 || cfg.Auth.LoginLockTTL <= 0 {
		return errors.New("auth login limits must be positive")
	}
	switch cfg.Layout.Surface {
	case SurfaceNative, SurfaceChromium:
	default:
		return fmt.Errorf("layout surface %q must be %s or %s", cfg.Layout.Surface, SurfaceNative, SurfaceChromium)
	}
	if cfg.Layout.ViewportMargin < 0 {
		return errors.New("layout viewport margin must not be negative")
	}
	if cfg.Layout.Debounce < 0 {
		return errors.New("layout debounce must not be negative")
	}
	if cfg.Browser.Timeout <= 0 {
		return errors.New("browser timeout must be positive")
	}
	if cfg.Imaging.MaxSide <= 0 {
		return errors.New("imaging max side must be positive")
	}
	if cfg.Imaging.Quality < 1 || cfg.Imaging.Quality > 100 {
		return errors.New("imaging quality must be within 1..100")
	}
	if cfg.Imaging.MaxPixels <= 0 {
		return errors.New("imaging max pixels must be positive")
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	switch d.Driver {
	case DriverSQLite:
		if d.Name == "" {
			return errors.New("database name (sqlite file) is required")
		}
		return nil
	case DriverPostgres:
	default:
		return fmt.Errorf("database driver %q must be %s or %s", d.Driver, DriverPostgres, DriverSQLite)
	}
	switch {
	case d.Host == "":
		return errors.New("database host is required")
	case d.Port <= 0:
		return errors.New("database port must be positive")
	case d.Name == "":
		return errors.New("database name is required")
	case d.User == "":
		return errors.New("database user is required")
	case d.Password == "":
		return errors.New("database password is required")
	case d.SSLMode == "":
		return errors.New("database sslmode is required")
	}
	return nil
}
