package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt 只使用前 72 字节，更长的口令会被静默截断，因此直接拒绝。
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrPasswordBlank    = errors.New("password is blank")
)

// ValidatePassword checks the length policy in bytes, which is what bcrypt limits.
func ValidatePassword(password string) error {
	switch {
	case strings.TrimSpace(password) == "":
		return ErrPasswordBlank
	case len(password) < MinPasswordLen:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordLen:
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword 校验口令策略后使用 bcrypt 生成哈希。
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPasswordHash 校验密码是否匹配哈希。
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
