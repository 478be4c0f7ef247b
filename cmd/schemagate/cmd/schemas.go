package cmd

import (
	"fmt"
	"log/slog"

	"github.com/nao1215/schemagate/internal/schema"
)

// loadSchemas はスキーマディレクトリを読み込み、全ての問題をログに出力する。
// strictがtrueの場合は問題が1件でもあればエラーを返す。
func loadSchemas(logger *slog.Logger, dir string, strict bool) (*schema.LoadResult, error) {
	result, err := schema.LoadDir(dir)
	if err != nil {
		return nil, err
	}

	for _, leaf := range result.EmptyLeaves() {
		logger.Error("スキーマファイルがありません", "path", leaf.Path, "error", leaf.Error())
	}
	for _, cerr := range result.ConfigurationErrors() {
		logger.Error("スキーマの設定が不正です",
			"path", cerr.Path,
			"field", cerr.Field,
			"reason", string(cerr.Reason),
			"suggestion", cerr.Suggestion,
			"error", cerr.Error(),
		)
	}

	if strict && result.HasProblems() {
		return nil, fmt.Errorf("スキーマディレクトリに %d 件の問題があります", len(result.Problems))
	}
	return result, nil
}
