package middleware

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

// jsonMediaType は受け付けるContent-Type。
const jsonMediaType = "application/json"

// RequireJSON はContent-Typeがapplication/jsonでないリクエストを400で拒否するGinミドルウェアを返す。
// charsetなどのパラメータは無視する。
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
		if err != nil || mediaType != jsonMediaType {
			AbortWithErrors(c, http.StatusBadRequest, FieldError{
				Message:    "Invalid content-type headers.",
				Field:      "headers.content-type",
				Suggestion: jsonMediaType,
			})
			return
		}
		c.Next()
	}
}
