// Package transform はテンプレートに従ってリクエストボディを変換する。
//
// テンプレートの文字列値のうち "$" で始まるものはパス式として扱い、
// "->" で区切ったフィールド名を順に辿ってリクエストボディから値を取り出す。
// オブジェクトは再帰的に変換し、それ以外の値はそのまま出力する。
//
//	{"id": "$user -> id", "source": "web"}
package transform

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

const (
	// Sentinel はパス式であることを示す先頭文字。
	Sentinel = "$"
	// Delimiter はパス式のフィールド区切り。
	Delimiter = "->"
)

var (
	// ErrFieldNotFound はパス式のフィールドがボディに存在しないことを表す。
	ErrFieldNotFound = errors.New("フィールドが存在しません")
	// ErrNotObject はオブジェクトでない値のフィールドを参照したことを表す。
	ErrNotObject = errors.New("オブジェクトではない値を参照しました")
)

// Error はパス式の解決に失敗したことを表す。
// リクエストボディがテンプレートの要求を満たしていないため、クライアントエラーとして扱う。
type Error struct {
	// Token は解決に失敗したパス式。
	Token string
	// Key はテンプレート上のキーの位置（例: "user.name"）。
	Key string
	// Segment は解決に失敗したフィールド名。
	Segment string
	// Body は受け取ったリクエストボディ。
	Body any
	// Err は失敗の原因（ErrFieldNotFound または ErrNotObject）。
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	return fmt.Sprintf("パス式 %q（キー %s）の解決に失敗: %q: %v", e.Token, e.Key, e.Segment, e.Err)
}

// Unwrap は原因となったエラーを返す。
func (e *Error) Unwrap() error {
	return e.Err
}

// Apply はテンプレートをボディに適用し、テンプレートと同じ形の値を返す。
// パス式が1つでも解決できない場合は変換全体を中断して*Errorを返す。
func Apply(template map[string]any, body any) (map[string]any, error) {
	return scan(template, body, "")
}

func scan(template map[string]any, body any, prefix string) (map[string]any, error) {
	out := make(map[string]any, len(template))
	// 失敗時に報告するキーを一定にするため辞書順に辿る
	for _, key := range slices.Sorted(maps.Keys(template)) {
		value := template[key]
		keyPath := joinKey(prefix, key)
		switch v := value.(type) {
		case string:
			if !IsPathExpression(v) {
				out[key] = v
				continue
			}
			resolved, err := resolve(v, body)
			if err != nil {
				err.Key = keyPath
				return nil, err
			}
			out[key] = resolved
		case map[string]any:
			nested, err := scan(v, body, keyPath)
			if err != nil {
				return nil, err
			}
			out[key] = nested
		default:
			out[key] = v
		}
	}
	return out, nil
}

// IsPathExpression は文字列がパス式かどうかを返す。
func IsPathExpression(s string) bool {
	return strings.HasPrefix(s, Sentinel)
}

// Segments はパス式をフィールド名の列に分解する。
// 各フィールド名の前後の空白は取り除き、空のフィールド名は無視する。
func Segments(token string) []string {
	parts := strings.Split(strings.TrimPrefix(token, Sentinel), Delimiter)
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// resolve はパス式をボディの先頭から順にフィールド参照して解決する。
// フィールド名が1つも無い場合はボディ全体を返す。
func resolve(token string, body any) (any, *Error) {
	current := body
	for _, segment := range Segments(token) {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, &Error{Token: token, Segment: segment, Body: body, Err: ErrNotObject}
		}
		next, ok := obj[segment]
		if !ok {
			return nil, &Error{Token: token, Segment: segment, Body: body, Err: ErrFieldNotFound}
		}
		current = next
	}
	return current, nil
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
