// Package config はschemagateの設定を読み込み、検証する。
//
// 設定は既定値、設定ファイル（schemagate.yaml）、環境変数（SCHEMAGATE_ で始まる）、
// コマンドラインフラグの順に上書きされる。
package config

import (
	"log/slog"
	"strings"
	"time"
)

const (
	// BackendFile は失敗記録を1件1ファイルのJSONとして保存する。
	BackendFile = "file"
	// BackendSQLite は失敗記録をSQLiteに保存する。
	BackendSQLite = "sqlite"
)

// Config はschemagateの設定全体。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Schemas  SchemasConfig  `mapstructure:"schemas"`
	Forward  ForwardConfig  `mapstructure:"forward"`
	Failures FailuresConfig `mapstructure:"failures"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig はHTTPサーバーの設定。
type ServerConfig struct {
	// Addr は待ち受けるアドレス。
	Addr string `mapstructure:"addr" validate:"required,hostname_port"`
	// TrustedProxies はX-Forwarded-Forを信頼するプロキシ。空の場合は信頼しない。
	TrustedProxies []string `mapstructure:"trusted_proxies" validate:"dive,ip|cidr"`
}

// SchemasConfig はスキーマディレクトリの設定。
type SchemasConfig struct {
	// Dir はスキーマディレクトリのパス。
	Dir string `mapstructure:"dir" validate:"required"`
	// Strict がtrueの場合、読み込みで問題が1件でもあれば起動しない。
	Strict bool `mapstructure:"strict"`
}

// ForwardConfig は転送の設定。
type ForwardConfig struct {
	// MaxAttempts は送信試行の最大回数（初回を含む）。
	MaxAttempts int `mapstructure:"max_attempts" validate:"min=1,max=10"`
	// RetryInterval は再試行間隔の単位。
	RetryInterval time.Duration `mapstructure:"retry_interval" validate:"gt=0"`
	// Timeout は1回の送信のタイムアウト。
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// FailuresConfig は失敗記録の保存先の設定。
type FailuresConfig struct {
	// Backend は file または sqlite。
	Backend string `mapstructure:"backend" validate:"oneof=file sqlite"`
	// Dir はfileバックエンドの保存先ディレクトリ。
	Dir string `mapstructure:"dir" validate:"required_if=Backend file"`
	// SQLitePath はsqliteバックエンドのデータベースファイル。
	SQLitePath string `mapstructure:"sqlite_path" validate:"required_if=Backend sqlite"`
}

// LogConfig はログの設定。
type LogConfig struct {
	// Level は debug, info, warn, error のいずれか。
	Level string `mapstructure:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// SlogLevel はログレベルをslog.Levelに変換する。
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// defaults は設定キーごとの既定値。
var defaults = map[string]any{
	"server.addr":            ":6736",
	"server.trusted_proxies": []string{},
	"schemas.dir":            "schemas",
	"schemas.strict":         false,
	"forward.max_attempts":   3,
	"forward.retry_interval": 5 * time.Second,
	"forward.timeout":        30 * time.Second,
	"failures.backend":       BackendFile,
	"failures.dir":           "fails",
	"failures.sqlite_path":   "fails/failures.db",
	"log.level":              "info",
}
