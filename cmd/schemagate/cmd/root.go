// Package cmd はschemagateのCLIコマンドを提供する。
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nao1215/schemagate/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCommand はルートコマンドを生成する。
func NewRootCommand() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "schemagate",
		Short: "schemagate - schema driven JSON gateway",
		Long: `schemagate exposes one HTTP route per directory of a schema tree.

Each route checks the caller against its access rules, reshapes the JSON body
with the route's template and forwards the result to a downstream endpoint.

Configuration:
  Config is loaded from schemagate.yaml in the current directory,
  $HOME/.schemagate/, or /etc/schemagate/.

  Environment variables can override config values with the SCHEMAGATE_ prefix.
  Example: SCHEMAGATE_SERVER_ADDR=:9090`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./schemagate.yaml)")

	root.AddCommand(
		newServeCommand(&cfgFile),
		newValidateCommand(&cfgFile),
		newVersionCommand(),
	)
	return root
}

// Execute はルートコマンドを実行する。
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig は設定を読み込み、コマンドのフラグを設定キーに結び付ける。
// フラグは明示的に指定された場合のみ設定ファイルと環境変数より優先する。
func loadConfig(cmd *cobra.Command, cfgFile string, bindings map[string]string) (*config.Config, error) {
	v := config.NewViper(cfgFile)
	for key, name := range bindings {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("フラグ %s の設定に失敗: %w", name, err)
			}
		}
	}
	return config.Load(v)
}

// newLogger はJSON形式の構造化ロガーを生成する。
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
