package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// testRequest はテストサーバーが受け取ったリクエスト情報を保持する構造体。
type testRequest struct {
	// Method はHTTPメソッド。
	Method string
	// Path はリクエストパス。
	Path string
	// Body はリクエストボディ。
	Body []byte
	// Headers はリクエストヘッダー。
	Headers http.Header
}

// newRecordingServer は受け取ったリクエストを記録するテストサーバーを生成する。
func newRecordingServer(t *testing.T, status int) (*httptest.Server, <-chan testRequest) {
	t.Helper()

	received := make(chan testRequest, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- testRequest{
			Method:  r.Method,
			Path:    r.URL.Path,
			Body:    body,
			Headers: r.Header,
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(ts.Close)
	return ts, received
}

// TestNew はNew関数でクライアントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("デフォルトのタイムアウトが30秒であること", func(t *testing.T) {
		t.Parallel()

		client := New()
		if client.httpClient.Timeout != DefaultTimeout {
			t.Errorf("Timeout = %v, want %v", client.httpClient.Timeout, DefaultTimeout)
		}
	})

	t.Run("WithTimeoutでタイムアウトを変更できること", func(t *testing.T) {
		t.Parallel()

		client := New(WithTimeout(2 * time.Second))
		if client.httpClient.Timeout != 2*time.Second {
			t.Errorf("Timeout = %v, want 2s", client.httpClient.Timeout)
		}
	})

	t.Run("WithHTTPClientで内部クライアントを差し替えられること", func(t *testing.T) {
		t.Parallel()

		hc := &http.Client{}
		client := New(WithHTTPClient(hc))
		if client.httpClient != hc {
			t.Error("httpClientが差し替えられていない")
		}
	})
}

// TestPostJSON はPostJSON関数を検証する。
func TestPostJSON(t *testing.T) {
	t.Parallel()

	t.Run("JSONボディとContent-TypeでPOSTされること", func(t *testing.T) {
		t.Parallel()

		ts, received := newRecordingServer(t, http.StatusNoContent)
		client := New()

		resp, err := client.PostJSON(context.Background(), ts.URL+"/hooks/user", map[string]any{"id": "u1", "ts": 1234})
		if err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusNoContent)
		}

		got := <-received
		if got.Method != http.MethodPost {
			t.Errorf("Method = %q, want %q", got.Method, http.MethodPost)
		}
		if got.Path != "/hooks/user" {
			t.Errorf("Path = %q, want %q", got.Path, "/hooks/user")
		}
		if ct := got.Headers.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want %q", ct, "application/json")
		}

		var sent map[string]any
		if err := json.Unmarshal(got.Body, &sent); err != nil {
			t.Fatalf("リクエストボディのパースに失敗: %v", err)
		}
		if sent["id"] != "u1" {
			t.Errorf("id = %v, want u1", sent["id"])
		}
		if sent["ts"] != float64(1234) {
			t.Errorf("ts = %v, want 1234", sent["ts"])
		}
	})

	t.Run("サーバーが500を返してもエラーにならないこと", func(t *testing.T) {
		t.Parallel()

		ts, _ := newRecordingServer(t, http.StatusInternalServerError)
		client := New()

		resp, err := client.PostJSON(context.Background(), ts.URL, map[string]any{})
		if err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
		}
	})

	t.Run("接続できないサーバーに対してエラーが返ること", func(t *testing.T) {
		t.Parallel()

		client := New()
		if _, err := client.PostJSON(context.Background(), "http://127.0.0.1:1/", map[string]any{}); err == nil {
			t.Fatal("PostJSON()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("キャンセルされたコンテキストでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts, _ := newRecordingServer(t, http.StatusOK)
		client := New()
		ctx, cancel := context.WithCancel(context.Background())
		cancel() // 即座にキャンセル

		if _, err := client.PostJSON(ctx, ts.URL, map[string]any{}); err == nil {
			t.Fatal("PostJSON()がエラーを返すべきだが、nilが返った")
		}
	})
}

// TestPutJSON はPutJSON関数を検証する。
func TestPutJSON(t *testing.T) {
	t.Parallel()

	ts, received := newRecordingServer(t, http.StatusOK)
	client := New()

	if _, err := client.PutJSON(context.Background(), ts.URL+"/items/1", map[string]any{"name": "a"}); err != nil {
		t.Fatalf("PutJSON()でエラーが発生: %v", err)
	}

	got := <-received
	if got.Method != http.MethodPut {
		t.Errorf("Method = %q, want %q", got.Method, http.MethodPut)
	}
	if string(got.Body) != `{"name":"a"}` {
		t.Errorf("Body = %s, want %s", got.Body, `{"name":"a"}`)
	}
}

// TestSendJSON_SerializationError はシリアライズ不可能なボディでエラーが返ることを検証する。
func TestSendJSON_SerializationError(t *testing.T) {
	t.Parallel()

	client := New()
	// json.Marshalでエラーになるチャネル型を渡す
	if _, err := client.SendJSON(context.Background(), http.MethodPost, "http://127.0.0.1:1/", make(chan int)); err == nil {
		t.Fatal("SendJSON()がエラーを返すべきだが、nilが返った")
	}
}
