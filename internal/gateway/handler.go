package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/schemagate/internal/access"
	"github.com/nao1215/schemagate/internal/schema"
	"github.com/nao1215/schemagate/internal/transform"
	"github.com/nao1215/schemagate/pkg/middleware"
)

// errTrailingData はボディにJSON値が2つ以上含まれることを表す。
var errTrailingData = errors.New("JSON値の後に余分なデータがあります")

// handleRoute はスキーマルートへのリクエストを処理する。
// ルーターが一致させたルートをレジストリで引き直し、
// アクセス制御、ボディのデコード、変換、転送の順に処理する。
func (s *Server) handleRoute(c *gin.Context) {
	def, ok := s.registry.Lookup(c.FullPath(), c.Request.Method)
	if !ok {
		s.logger.Error("ルート定義が見つかりません",
			"method", c.Request.Method, "route", c.FullPath())
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	decision, err := access.Check(def.AccessControl, access.Request{
		ClientIP: c.ClientIP(),
		Header:   c.Request.Header,
	})
	if err != nil {
		s.logger.Error("アクセス制御の評価に失敗しました",
			"method", def.Method, "route", def.Route, "error", err)
		s.count(def, outcomeError)
		middleware.AbortWithErrors(c, http.StatusInternalServerError, middleware.FieldError{
			Message: "The route's access control could not be evaluated.",
		})
		return
	}
	if !decision.Allowed {
		s.logger.Info("アクセスを拒否しました",
			"method", def.Method, "route", def.Route,
			"ip", c.ClientIP(), "denied_by", string(decision.DeniedBy))
		s.count(def, outcomeDenied)
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	body, err := s.decodeBody(c)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.logger.Warn("リクエストボディのデコードに失敗しました",
			"method", def.Method, "route", def.Route, "error", err)
		s.count(def, outcomeInvalidBody)
		middleware.AbortWithErrors(c, status, middleware.FieldError{
			Message:    "The request body is not valid JSON.",
			Field:      "body",
			Suggestion: "a single JSON value",
		})
		return
	}

	payload, err := transform.Apply(def.Template, body)
	if err != nil {
		fe := middleware.FieldError{Message: "The request does not meet the schema's requirements."}
		var terr *transform.Error
		if errors.As(err, &terr) {
			fe.Field = terr.Key
			fe.Token = terr.Token
		}
		s.logger.Warn("リクエストボディがスキーマを満たしません",
			"method", def.Method, "route", def.Route, "body", body, "error", err)
		s.count(def, outcomeTransform)
		middleware.AbortWithErrors(c, http.StatusBadRequest, fe)
		return
	}
	s.logger.Info("変換が完了しました",
		"method", def.Method, "route", def.Route, "payload", payload)

	if def.Forward != nil {
		s.forward(def, payload)
	}

	s.count(def, outcomeAccepted)
	c.Status(http.StatusNoContent)
}

// forward は転送を開始する。転送の完了は待たない。
func (s *Server) forward(def schema.RouteDefinition, payload map[string]any) {
	if s.forwarder == nil {
		s.logger.Warn("転送先が設定されていますが転送処理が無いため転送しません",
			"route", def.Route, "address", def.Forward.Address)
		return
	}
	taskID := s.forwarder.Dispatch(*def.Forward, payload)
	s.logger.Info("転送を開始しました",
		"route", def.Route, "task_id", taskID,
		"address", def.Forward.Address, "method", def.Forward.Method)
}

// decodeBody はリクエストボディを1つのJSON値としてデコードする。
// 空のボディはnilとして扱う。数値は精度を保つためjson.Numberのまま保持する。
func (s *Server) decodeBody(c *gin.Context) (any, error) {
	reader := http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes)
	dec := json.NewDecoder(reader)
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("ボディのデコードに失敗: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, fmt.Errorf("ボディのデコードに失敗: %w", err)
		}
		return nil, errTrailingData
	}
	return body, nil
}

func (s *Server) count(def schema.RouteDefinition, outcome string) {
	s.metrics.RequestsTotal.WithLabelValues(def.Route, def.Method, outcome).Inc()
}
