// Command admin provisions accounts: it creates a user, or with -reset issues a new one-time
// password for an existing user. Either way the user must change the password at first login.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"phCompose/internal/auth"
	"phCompose/internal/config"
	"phCompose/internal/database"
)

func main() {
	var (
		username = flag.String("username", "", "用户名（必填）")
		reset    = flag.Bool("reset", false, "为已存在的用户重置一次性密码")
		dbDriver = flag.String("db-driver", "", "数据库驱动 postgres|sqlite（可选，默认读 DATABASE_DRIVER）")
		dbHost   = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort   = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName   = flag.String("db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
		dbUser   = flag.String("db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
		dbPass   = flag.String("db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
		sslMode  = flag.String("db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
	)
	flag.Parse()

	u := strings.TrimSpace(*username)
	if u == "" {
		log.Fatal("missing required flag: --username")
	}

	dbCfg, err := databaseConfig(config.DatabaseConfig{
		Driver:   *dbDriver,
		Host:     *dbHost,
		Port:     *dbPort,
		Name:     *dbName,
		User:     *dbUser,
		Password: *dbPass,
		SSLMode:  *sslMode,
	})
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		log.Fatalf("generate password: %v", err)
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	if err := provision(db, u, hashed, *reset); err != nil {
		log.Fatal(err)
	}

	action := "已创建账号"
	if *reset {
		action = "已重置密码"
	}
	fmt.Printf("%s（首次登录需强制改密）：\n", action)
	fmt.Printf("用户名: %s\n", u)
	fmt.Printf("一次性密码: %s\n", password)
	fmt.Printf("提示：该密码仅显示一次。\n")
}

// provision 创建用户，或在 reset 时覆盖已有用户的密码。两种情况都要求下次登录改密。
func provision(db *gorm.DB, username, hashed string, reset bool) error {
	var existing database.User
	err := db.Where("username = ?", username).First(&existing).Error
	switch {
	case err == nil && !reset:
		return fmt.Errorf("user %q already exists (use -reset)", username)
	case err == nil:
		return db.Model(&existing).Updates(map[string]any{
			"password_hash":        hashed,
			"must_change_password": true,
		}).Error
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("query user: %w", err)
	case reset:
		return fmt.Errorf("user %q not found", username)
	}
	return db.Create(&database.User{
		Username:           username,
		PasswordHash:       hashed,
		MustChangePassword: true,
	}).Error
}

// databaseConfig 以命令行参数优先，其次环境变量，最后使用本地默认值。
func databaseConfig(flags config.DatabaseConfig) (config.DatabaseConfig, error) {
	cfg := flags
	pick := func(v *string, envs ...string) {
		for _, env := range envs {
			if strings.TrimSpace(*v) != "" {
				return
			}
			*v = os.Getenv(env)
		}
	}
	pick(&cfg.Driver, "DATABASE_DRIVER")
	pick(&cfg.Host, "DATABASE_HOST")
	pick(&cfg.Name, "POSTGRES_DB", "DB_NAME")
	pick(&cfg.User, "POSTGRES_USER", "DB_USER")
	pick(&cfg.Password, "POSTGRES_PASSWORD", "DB_PASSWORD")
	pick(&cfg.SSLMode, "DATABASE_SSLMODE")

	if cfg.Port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			cfg.Port = p
		}
	}
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port <= 0 {
		cfg.Port = 5432
	}
	if strings.TrimSpace(cfg.SSLMode) == "" {
		cfg.SSLMode = "disable"
	}
	if strings.TrimSpace(cfg.Driver) == "" {
		cfg.Driver = config.DriverPostgres
	}
	if cfg.Driver == config.DriverSQLite {
		if strings.TrimSpace(cfg.Name) == "" {
			return config.DatabaseConfig{}, errors.New("database file is required (POSTGRES_DB)")
		}
		return cfg, nil
	}
	switch {
	case strings.TrimSpace(cfg.Name) == "":
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	case strings.TrimSpace(cfg.User) == "":
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	case strings.TrimSpace(cfg.Password) == "":
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}
	return cfg, nil
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
