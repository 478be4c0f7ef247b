package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/schemagate/internal/config"
	"github.com/nao1215/schemagate/internal/failstore"
	"github.com/nao1215/schemagate/internal/forward"
	"github.com/nao1215/schemagate/internal/gateway"
	"github.com/nao1215/schemagate/internal/schema"
	"github.com/nao1215/schemagate/pkg/httpclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// shutdownTimeout はHTTPサーバーの停止と転送の完了を待つ時間。
const shutdownTimeout = 30 * time.Second

// serveFlags はserveコマンドのフラグと設定キーの対応。
var serveFlags = map[string]string{
	"server.addr":    "addr",
	"schemas.dir":    "schemas",
	"schemas.strict": "strict",
}

func newServeCommand(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		Long: `Load the schema directory and serve one route per schema.

Examples:
  # Start with config file settings
  schemagate serve

  # Serve a specific schema directory and refuse to start on any problem
  schemagate serve --schemas ./schemas --strict`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *cfgFile, serveFlags)
			if err != nil {
				return err
			}
			logger := newLogger(os.Stdout, cfg.Log.SlogLevel())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default: :6736)")
	cmd.Flags().String("schemas", "", "schema directory (default: ./schemas)")
	cmd.Flags().Bool("strict", false, "refuse to start when the schema directory has any problem")
	return cmd
}

// serve はゲートウェイを起動し、ctxが終了するまで待ち受ける。
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	result, err := loadSchemas(logger, cfg.Schemas.Dir, cfg.Schemas.Strict)
	if err != nil {
		return err
	}
	registry, err := schema.NewRegistry(result.Routes...)
	if err != nil {
		return err
	}

	store, err := openFailureStore(ctx, cfg.Failures, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("失敗記録の保存先のクローズに失敗しました", "error", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	dispatcher := forward.NewDispatcher(
		httpclient.New(httpclient.WithTimeout(cfg.Forward.Timeout)),
		store,
		forward.WithRetryPolicy(forward.RetryPolicy{
			MaxAttempts: cfg.Forward.MaxAttempts,
			Interval:    cfg.Forward.RetryInterval,
		}),
		forward.WithLogger(logger),
		forward.WithMetrics(forward.NewMetrics(promRegistry)),
	)

	gin.SetMode(gin.ReleaseMode)
	server, err := gateway.NewServer(registry, dispatcher,
		gateway.WithLogger(logger),
		gateway.WithPrometheusRegistry(promRegistry),
		gateway.WithTrustedProxies(cfg.Server.TrustedProxies),
	)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("リクエストの待ち受けを開始します",
			"addr", cfg.Server.Addr, "routes", registry.Len(), "problems", len(result.Problems))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("停止しています")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTPサーバーの停止に失敗しました", "error", err)
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn("完了していない転送を残して停止します", "error", err)
	}
	return nil
}

// openFailureStore は設定に応じた失敗記録の保存先を開く。
func openFailureStore(ctx context.Context, cfg config.FailuresConfig, logger *slog.Logger) (failstore.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return failstore.NewSQLiteStore(ctx, cfg.SQLitePath, logger)
	case config.BackendFile, "":
		return failstore.NewFileStore(cfg.Dir)
	default:
		return nil, fmt.Errorf("未対応の失敗記録の保存先です: %s", cfg.Backend)
	}
}
