// Package middleware はschemagateのGinルーターで使用する共通ミドルウェアを提供する。
//
// パニックリカバリ、構造化されたリクエストログ、
// JSONのContent-Typeを要求するゲートを含む。
// エラーレスポンスは全て ErrorResponse の形式で返す。
package middleware
