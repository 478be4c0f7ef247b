// Package httpclient は転送先サービスへJSONを送信するHTTPクライアントを提供する。
//
// ゲートウェイが変換後のペイロードを転送先へPOST/PUTする際に使用する。
// 転送の成否はトランスポート層のエラーの有無だけで判定し、
// レスポンスのステータスコードは呼び出し側に返すのみで検査しない。
package httpclient
