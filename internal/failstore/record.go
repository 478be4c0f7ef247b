// Package failstore は転送を断念したペイロードを永続化する。
//
// 1件の断念につき1つの FailureRecord を書き込み、以後は更新も読み戻しもしない。
// デフォルトの FileStore は記録ごとに <id>.json を1ファイル作成する。
// SQLiteStore は同じ記録を failure_records テーブルに追記する。
package failstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/schemagate/internal/schema"
)

// FailureRecord は転送を断念した1件のペイロード。
type FailureRecord struct {
	// ID は記録の一意識別子（UUID）。ファイル名にも使用する。
	ID string `json:"id"`
	// Attempts は転送を試行した回数。
	Attempts int `json:"attempts"`
	// Target は転送先。
	Target schema.ForwardTarget `json:"target"`
	// Payload は変換後のペイロード。
	Payload any `json:"payload"`
	// LastError は最後の試行で発生したエラー。
	LastError string `json:"last_error,omitempty"`
	// AbandonedAt は転送を断念した日時。
	AbandonedAt time.Time `json:"abandoned_at"`
}

// NewRecord は新しいIDを採番してFailureRecordを生成する。
func NewRecord(attempts int, target schema.ForwardTarget, payload any, lastErr error) FailureRecord {
	rec := FailureRecord{
		ID:          uuid.New().String(),
		Attempts:    attempts,
		Target:      target,
		Payload:     payload,
		AbandonedAt: time.Now().UTC(),
	}
	if lastErr != nil {
		rec.LastError = lastErr.Error()
	}
	return rec
}

// Store はFailureRecordの書き込み先。
// Saveが戻った時点で記録は永続化済みでなければならない。
type Store interface {
	Save(ctx context.Context, rec FailureRecord) error
	Close() error
}
