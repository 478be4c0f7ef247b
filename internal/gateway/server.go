package gateway

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/schemagate/internal/schema"
	"github.com/nao1215/schemagate/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serviceName は/healthで返すサービス名。
const serviceName = "schemagate"

// DefaultMaxBodyBytes はリクエストボディの既定の上限。
const DefaultMaxBodyBytes int64 = 10 << 20

// Forwarder は変換後のペイロードの転送を開始する。
// 呼び出しは転送の完了を待たずに戻る。
type Forwarder interface {
	Dispatch(target schema.ForwardTarget, payload any) string
}

// Server はschemagateのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// registry は公開するルート定義。
	registry *schema.Registry
	// forwarder は転送を受け持つ。
	forwarder Forwarder
	// logger は構造化ロガー。
	logger *slog.Logger
	// metrics はルートのメトリクス。
	metrics *Metrics
	// promRegistry は/metricsで公開するレジストリ。
	promRegistry *prometheus.Registry
	// trustedProxies はX-Forwarded-Forを信頼するプロキシ。
	trustedProxies []string
	// maxBodyBytes はリクエストボディの上限。
	maxBodyBytes int64
}

// Option はServerの設定を変更する関数。
type Option func(*Server)

// WithLogger はロガーを設定する。
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithPrometheusRegistry はメトリクスの登録先と/metricsの公開元を設定する。
func WithPrometheusRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.promRegistry = reg
	}
}

// WithTrustedProxies はX-Forwarded-Forを信頼するプロキシを設定する。
// 設定しない場合は接続元のアドレスを呼び出し元IPとする。
func WithTrustedProxies(proxies []string) Option {
	return func(s *Server) {
		s.trustedProxies = proxies
	}
}

// WithMaxBodyBytes はリクエストボディの上限を設定する。
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		s.maxBodyBytes = n
	}
}

// NewServer はレジストリの全ルートを公開するサーバーを生成する。
func NewServer(registry *schema.Registry, forwarder Forwarder, opts ...Option) (*Server, error) {
	s := &Server{
		registry:     registry,
		forwarder:    forwarder,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.promRegistry == nil {
		s.promRegistry = prometheus.NewRegistry()
	}
	s.metrics = NewMetrics(s.promRegistry)

	router := gin.New()
	if err := router.SetTrustedProxies(s.trustedProxies); err != nil {
		return nil, fmt.Errorf("信頼するプロキシの設定に失敗: %w", err)
	}
	router.Use(middleware.Recovery(s.logger))
	router.Use(middleware.RequestLogger(s.logger))
	s.router = router

	s.setupRoutes()
	return s, nil
}

// Handler はサーバーのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// reserved はスキーマルートより優先する組み込みのルート。
var reserved = map[string]struct{}{
	http.MethodGet + " /health":  {},
	http.MethodGet + " /metrics": {},
}

// setupRoutes は組み込みのルートとスキーマルートを登録する。
func (s *Server) setupRoutes() {
	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{
		Registry: s.promRegistry,
	})))

	routes := s.router.Group("", middleware.RequireJSON())
	registered := 0
	for _, def := range s.registry.All() {
		if _, ok := reserved[def.Method+" "+def.Route]; ok {
			s.logger.Error("組み込みのルートと重複するため登録しません",
				"method", def.Method, "route", def.Route)
			continue
		}
		routes.Handle(def.Method, def.Route, s.handleRoute)
		registered++
		s.logger.Info("ルートを登録しました",
			"method", def.Method,
			"route", def.Route,
			"access_control", !def.AccessControl.IsZero(),
			"forward", def.Forward != nil,
		)
	}
	s.metrics.RoutesRegistered.Set(float64(registered))
}
