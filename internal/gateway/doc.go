// Package gateway はスキーマディレクトリから構築したルートを公開するHTTPサーバーを提供する。
//
// 各ルートはContent-Typeの検査、アクセス制御、テンプレートによる変換の順に
// リクエストを処理し、転送先が設定されていれば変換後のペイロードを転送に回して
// すぐに204を返す。転送の結果がレスポンスに影響することはない。
// ルートとは別に /health と /metrics を公開する。
package gateway
