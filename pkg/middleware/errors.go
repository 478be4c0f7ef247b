package middleware

import (
	"github.com/gin-gonic/gin"
)

// FieldError はエラーレスポンスの1件のエラー。
type FieldError struct {
	// Message は利用者向けのメッセージ。
	Message string `json:"message"`
	// Field は問題のあるリクエストの箇所（例: "headers.content-type"）。
	Field string `json:"field,omitempty"`
	// Suggestion は期待される値。
	Suggestion string `json:"suggestion,omitempty"`
	// Token は解決に失敗したパス式。
	Token string `json:"token,omitempty"`
}

// ErrorResponse はエラーレスポンスのボディ。
type ErrorResponse struct {
	Errors []FieldError `json:"errors"`
}

// AbortWithErrors はErrorResponseを返して後続のハンドラを中断する。
func AbortWithErrors(c *gin.Context, status int, errs ...FieldError) {
	c.AbortWithStatusJSON(status, ErrorResponse{Errors: errs})
}
