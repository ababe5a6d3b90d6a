package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger 每个请求输出一条结构化日志
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
			log.Error("http request", fields...)
			return
		}
		if path == "/health" || path == "/metrics" {
			log.Debug("http request", fields...)
			return
		}
		log.Info("http request", fields...)
	}
}

// cronSecretMiddleware 校验定时任务调用方：Authorization: Bearer <secret> 或 x-cron-secret 头。
// 未配置 secret 时一律拒绝。
func cronSecretMiddleware(secret string) gin.HandlerFunc {
	want := []byte(secret)

	return func(c *gin.Context) {
		if secret == "" {
			abortUnauthorized(c)
			return
		}

		var bearer string
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			bearer = strings.TrimPrefix(h, "Bearer ")
		}
		header := c.GetHeader("x-cron-secret")

		if subtle.ConstantTimeCompare([]byte(bearer), want) != 1 &&
			subtle.ConstantTimeCompare([]byte(header), want) != 1 {
			abortUnauthorized(c)
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
}
