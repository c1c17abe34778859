package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"phCompose/internal/errcode"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// CodedError 返回带错误码的响应，前端按 code 区分可恢复错误与系统错误。
func CodedError(c *gin.Context, status int, code int, msg string) {
	c.JSON(status, gin.H{
		"error":     msg,
		"code":      code,
		"code_text": errcode.Text(code),
	})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }
