package failstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/schemagate/internal/schema"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// testTarget はテスト用の転送先。
var testTarget = schema.ForwardTarget{Address: "https://x/y", Method: "POST"}

// TestNewRecord はNewRecordで記録が正しく生成されることを検証する。
func TestNewRecord(t *testing.T) {
	t.Parallel()

	t.Run("IDが採番され最後のエラーが記録されること", func(t *testing.T) {
		t.Parallel()

		rec := NewRecord(3, testTarget, map[string]any{"id": "u1"}, errors.New("connection refused"))
		if rec.ID == "" {
			t.Error("IDが空")
		}
		if rec.Attempts != 3 {
			t.Errorf("Attempts = %d, want 3", rec.Attempts)
		}
		if rec.LastError != "connection refused" {
			t.Errorf("LastError = %q, want %q", rec.LastError, "connection refused")
		}
		if rec.AbandonedAt.IsZero() {
			t.Error("AbandonedAtが設定されていない")
		}
	})

	t.Run("呼び出しごとに異なるIDが採番されること", func(t *testing.T) {
		t.Parallel()

		a := NewRecord(1, testTarget, nil, nil)
		b := NewRecord(1, testTarget, nil, nil)
		if a.ID == b.ID {
			t.Errorf("IDが重複している: %s", a.ID)
		}
		if a.LastError != "" {
			t.Errorf("LastError = %q, want empty", a.LastError)
		}
	})
}

// TestFileStore はFileStoreの書き込みを検証する。
func TestFileStore(t *testing.T) {
	t.Parallel()

	t.Run("存在しないディレクトリを作成すること", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "fails")
		if _, err := NewFileStore(dir); err != nil {
			t.Fatalf("NewFileStore()でエラーが発生: %v", err)
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("ディレクトリが作成されていない: %v", err)
		}
	})

	t.Run("ディレクトリが空の場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		if _, err := NewFileStore(""); err == nil {
			t.Fatal("NewFileStore()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("記録が<id>.jsonとして1ファイルだけ書き込まれること", func(t *testing.T) {
		t.Parallel()

		store, err := NewFileStore(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileStore()でエラーが発生: %v", err)
		}
		rec := NewRecord(3, testTarget, map[string]any{"id": "u1", "ts": 1234}, errors.New("boom"))

		if err := store.Save(context.Background(), rec); err != nil {
			t.Fatalf("Save()でエラーが発生: %v", err)
		}

		entries, err := os.ReadDir(store.Dir())
		if err != nil {
			t.Fatalf("ディレクトリの読み込みに失敗: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("ファイル数 = %d, want 1", len(entries))
		}
		if entries[0].Name() != rec.ID+".json" {
			t.Errorf("ファイル名 = %q, want %q", entries[0].Name(), rec.ID+".json")
		}

		data, err := os.ReadFile(store.PathOf(rec.ID))
		if err != nil {
			t.Fatalf("記録の読み込みに失敗: %v", err)
		}
		var got map[string]any
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("記録のパースに失敗: %v", err)
		}
		if got["id"] != rec.ID {
			t.Errorf("id = %v, want %s", got["id"], rec.ID)
		}
		if got["attempts"] != float64(3) {
			t.Errorf("attempts = %v, want 3", got["attempts"])
		}
		target, _ := got["target"].(map[string]any)
		if target["address"] != "https://x/y" || target["method"] != "POST" {
			t.Errorf("target = %v, want https://x/y POST", got["target"])
		}
		payload, _ := got["payload"].(map[string]any)
		if payload["id"] != "u1" {
			t.Errorf("payload = %v, want id=u1", got["payload"])
		}
	})

	t.Run("キャンセルされたコンテキストでは書き込まないこと", func(t *testing.T) {
		t.Parallel()

		store, err := NewFileStore(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileStore()でエラーが発生: %v", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := store.Save(ctx, NewRecord(1, testTarget, nil, nil)); err == nil {
			t.Fatal("Save()がエラーを返すべきだが、nilが返った")
		}
		entries, _ := os.ReadDir(store.Dir())
		if len(entries) != 0 {
			t.Errorf("ファイル数 = %d, want 0", len(entries))
		}
	})
}

// TestSQLiteStore はSQLiteStoreの書き込みを検証する。
func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	t.Run("記録が1行挿入されること", func(t *testing.T) {
		t.Parallel()

		store, err := NewSQLiteStore(context.Background(), ":memory:", discard)
		if err != nil {
			t.Fatalf("NewSQLiteStore()でエラーが発生: %v", err)
		}
		t.Cleanup(func() { store.Close() })

		rec := NewRecord(2, testTarget, map[string]any{"id": "u1"}, nil)
		if err := store.Save(context.Background(), rec); err != nil {
			t.Fatalf("Save()でエラーが発生: %v", err)
		}

		var attempts int
		var address, method, payload string
		err = store.db.QueryRow(
			"SELECT attempts, target_address, target_method, payload FROM failure_records WHERE id = ?", rec.ID,
		).Scan(&attempts, &address, &method, &payload)
		if err != nil {
			t.Fatalf("記録の取得に失敗: %v", err)
		}
		if attempts != 2 {
			t.Errorf("attempts = %d, want 2", attempts)
		}
		if address != "https://x/y" || method != "POST" {
			t.Errorf("target = %s %s, want POST https://x/y", method, address)
		}
		if payload != `{"id":"u1"}` {
			t.Errorf("payload = %s, want %s", payload, `{"id":"u1"}`)
		}
	})

	t.Run("同じIDの記録は挿入できないこと", func(t *testing.T) {
		t.Parallel()

		store, err := NewSQLiteStore(context.Background(), ":memory:", discard)
		if err != nil {
			t.Fatalf("NewSQLiteStore()でエラーが発生: %v", err)
		}
		t.Cleanup(func() { store.Close() })

		rec := NewRecord(1, testTarget, nil, nil)
		if err := store.Save(context.Background(), rec); err != nil {
			t.Fatalf("Save()でエラーが発生: %v", err)
		}
		if err := store.Save(context.Background(), rec); err == nil {
			t.Fatal("2回目のSave()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("ファイルパスを指定した場合にディレクトリが作成されること", func(t *testing.T) {
		t.Parallel()

		dbPath := filepath.Join(t.TempDir(), "nested", "failures.db")
		store, err := NewSQLiteStore(context.Background(), dbPath, discard)
		if err != nil {
			t.Fatalf("NewSQLiteStore()でエラーが発生: %v", err)
		}
		t.Cleanup(func() { store.Close() })

		if _, err := os.Stat(dbPath); err != nil {
			t.Errorf("データベースファイルが作成されていない: %v", err)
		}
	})
}
