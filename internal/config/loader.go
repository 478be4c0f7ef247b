package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// fileBaseName は設定ファイルの名前（拡張子を除く）。
	fileBaseName = "schemagate"
	// envPrefix は環境変数の接頭辞。
	envPrefix = "SCHEMAGATE"
)

// NewViper は既定値と環境変数を設定したviperを生成する。
// configFileが空の場合は標準の場所からschemagate.yaml（.yml）を探す。
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// 例: SCHEMAGATE_FORWARD_MAX_ATTEMPTS は forward.max_attempts を上書きする
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// findConfigFile は標準の場所から設定ファイルを探す。見つからない場合は空文字列。
// 拡張子なしの同名ファイル（実行ファイル自身）には一致させない。
func findConfigFile() string {
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "."+fileBaseName))
	}
	dirs = append(dirs, filepath.Join("/etc", fileBaseName))
	return findConfigFileInDirs(dirs)
}

func findConfigFileInDirs(dirs []string) string {
	for _, dir := range dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, fileBaseName+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Load は設定ファイルを読み込み、既定値と環境変数を反映して検証済みのConfigを返す。
// 設定ファイルが無い場合は既定値と環境変数だけで構成する。
func Load(v *viper.Viper) (*Config, error) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定の変換に失敗: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定が不正です: %w", err)
	}
	return &cfg, nil
}
