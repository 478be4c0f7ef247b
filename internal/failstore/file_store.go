package failstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore はFailureRecordを1件1ファイルのJSONとして書き込む。
type FileStore struct {
	dir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore はディレクトリに書き込むFileStoreを生成する。
// ディレクトリが無い場合は作成する。
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("失敗記録のディレクトリが指定されていません")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("失敗記録ディレクトリの作成に失敗: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir は書き込み先のディレクトリを返す。
func (s *FileStore) Dir() string {
	return s.dir
}

// PathOf は記録IDに対応するファイルパスを返す。
func (s *FileStore) PathOf(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save は記録を一時ファイルに書いてfsyncした後、<id>.json にリネームする。
// 途中で失敗した場合に不完全なファイルは残らない。
func (s *FileStore) Save(ctx context.Context, rec FailureRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		return errors.New("記録IDが空です")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("失敗記録のシリアライズに失敗: %w", err)
	}

	// 起動後にディレクトリが削除された場合に備えて再作成する
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("失敗記録ディレクトリの作成に失敗: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+rec.ID+"-*")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("失敗記録の書き込みに失敗: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("失敗記録の同期に失敗: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("一時ファイルのクローズに失敗: %w", err)
	}

	if err := os.Rename(tmpName, s.PathOf(rec.ID)); err != nil {
		return fmt.Errorf("失敗記録の確定に失敗: %w", err)
	}
	return nil
}

// Close は何もしない。
func (s *FileStore) Close() error {
	return nil
}
