package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger は受信したリクエストを1行の構造化ログとして出力するGinミドルウェアを返す。
// ルートが一致しない場合のrouteは空になる。
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "リクエストを受信しました",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
			"agent", c.Request.UserAgent(),
			"content_type", c.ContentType(),
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
		)
	}
}
