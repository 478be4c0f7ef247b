package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout はリクエスト全体のデフォルトのタイムアウト。
const DefaultTimeout = 30 * time.Second

// Client は転送用のHTTPクライアント。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
}

// Option はClientの設定を変更する関数。
type Option func(*Client)

// WithTimeout はリクエストのタイムアウトを設定する。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient は内部で使用するHTTPクライアントを差し替える。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New は新しい転送用HTTPクライアントを生成する。
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response は転送先からのレスポンスの要約。
type Response struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
}

// PostJSON は指定URLにJSONボディでPOSTリクエストを送信する。
func (c *Client) PostJSON(ctx context.Context, url string, body any) (*Response, error) {
	return c.SendJSON(ctx, http.MethodPost, url, body)
}

// PutJSON は指定URLにJSONボディでPUTリクエストを送信する。
func (c *Client) PutJSON(ctx context.Context, url string, body any) (*Response, error) {
	return c.SendJSON(ctx, http.MethodPut, url, body)
}

// SendJSON はJSON形式のHTTPリクエストを1回だけ送信する。
// エラーを返すのはシリアライズ失敗とトランスポート層の失敗のみで、
// 4xx/5xxのレスポンスはエラーとして扱わない。
func (c *Client) SendJSON(ctx context.Context, method, url string, body any) (*Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	// コネクションを再利用するためにボディを読み捨てる
	_, _ = io.Copy(io.Discard, resp.Body)

	return &Response{StatusCode: resp.StatusCode}, nil
}
