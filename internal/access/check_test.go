package access

import (
	"errors"
	"net/http"
	"testing"

	"github.com/nao1215/schemagate/internal/schema"
)

func header(kv ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

// TestCheck はアクセス制御の判定を検証する。
func TestCheck(t *testing.T) {
	t.Parallel()

	t.Run("アクセス制御が無い場合は常に許可されること", func(t *testing.T) {
		t.Parallel()

		for _, ac := range []*schema.AccessControl{nil, {}} {
			d, err := Check(ac, Request{ClientIP: "203.0.113.1", Header: header()})
			if err != nil {
				t.Fatalf("Check()でエラーが発生: %v", err)
			}
			if !d.Allowed {
				t.Errorf("Check(%v) = %+v, want allowed", ac, d)
			}
		}
	})

	t.Run("許可IPに含まれない呼び出し元は拒否されること", func(t *testing.T) {
		t.Parallel()

		ac := &schema.AccessControl{Addresses: []string{"10.0.0.1", "10.0.0.2"}}

		d, err := Check(ac, Request{ClientIP: "10.0.0.2", Header: header()})
		if err != nil || !d.Allowed {
			t.Errorf("Check(10.0.0.2) = (%+v, %v), want allowed", d, err)
		}
		d, err = Check(ac, Request{ClientIP: "10.0.0.3", Header: header()})
		if err != nil || d.Allowed || d.DeniedBy != CategoryAddress {
			t.Errorf("Check(10.0.0.3) = (%+v, %v), want denied by address", d, err)
		}
	})

	t.Run("IPv4射影IPv6アドレスをIPv4として扱うこと", func(t *testing.T) {
		t.Parallel()

		ac := &schema.AccessControl{Addresses: []string{"127.0.0.1"}}
		d, err := Check(ac, Request{ClientIP: "::ffff:127.0.0.1", Header: header()})
		if err != nil || !d.Allowed {
			t.Errorf("Check() = (%+v, %v), want allowed", d, err)
		}
	})

	t.Run("User-Agentルールはいずれかが一致すれば許可されること", func(t *testing.T) {
		t.Parallel()

		ac := &schema.AccessControl{AgentRules: []schema.ComparisonRule{
			mustRule(t, schema.ComparisonEquals, "partner-bot/1.0"),
			mustRule(t, schema.ComparisonStartsWith, "curl/"),
		}}

		d, err := Check(ac, Request{Header: header("User-Agent", "curl/8.4.0")})
		if err != nil || !d.Allowed {
			t.Errorf("Check(curl) = (%+v, %v), want allowed", d, err)
		}
		d, err = Check(ac, Request{Header: header("User-Agent", "Mozilla/5.0")})
		if err != nil || d.DeniedBy != CategoryAgent {
			t.Errorf("Check(Mozilla) = (%+v, %v), want denied by agent", d, err)
		}
	})

	t.Run("User-Agentルールがある場合にUser-Agentが無ければ拒否されること", func(t *testing.T) {
		t.Parallel()

		ac := &schema.AccessControl{AgentRules: []schema.ComparisonRule{
			mustRule(t, schema.ComparisonIncludes, "bot"),
		}}
		d, err := Check(ac, Request{Header: header()})
		if err != nil || d.DeniedBy != CategoryAgent {
			t.Errorf("Check() = (%+v, %v), want denied by agent", d, err)
		}
	})

	t.Run("ヘッダールールは大文字小文字を区別しない比較で許可されること", func(t *testing.T) {
		t.Parallel()

		ac := &schema.AccessControl{HeaderRules: []schema.HeaderRule{
			{Header: "X-Env", ComparisonRule: mustRule(t, schema.ComparisonEqualsIgnoreCase, "stage")},
		}}

		d, err := Check(ac, Request{Header: header("X-Env", "STAGE")})
		if err != nil || !d.Allowed {
			t.Errorf("Check(STAGE) = (%+v, %v), want allowed", d, err)
		}
		d, err = Check(ac, Request{Header: header("X-Env", "prod")})
		if err != nil || d.DeniedBy != CategoryHeader {
			t.Errorf("Check(prod) = (%+v, %v), want denied by header", d, err)
		}
		d, err = Check(ac, Request{Header: header()})
		if err != nil || d.DeniedBy != CategoryHeader {
			t.Errorf("Check(no header) = (%+v, %v), want denied by header", d, err)
		}
	})

	t.Run("ヘッダールールは存在するヘッダーのいずれかが一致すれば許可されること", func(t *testing.T) {
		t.Parallel()

		ac := &schema.AccessControl{HeaderRules: []schema.HeaderRule{
			{Header: "X-Token", ComparisonRule: mustRule(t, schema.ComparisonEquals, "secret")},
			{Header: "X-Env", ComparisonRule: mustRule(t, schema.ComparisonEquals, "stage")},
		}}

		d, err := Check(ac, Request{Header: header("X-Env", "stage")})
		if err != nil || !d.Allowed {
			t.Errorf("Check() = (%+v, %v), want allowed", d, err)
		}
	})

	t.Run("全てのカテゴリを通過する必要があること", func(t *testing.T) {
		t.Parallel()

		ac := &schema.AccessControl{
			Addresses:  []string{"10.0.0.1"},
			AgentRules: []schema.ComparisonRule{mustRule(t, schema.ComparisonIncludes, "bot")},
			HeaderRules: []schema.HeaderRule{
				{Header: "X-Env", ComparisonRule: mustRule(t, schema.ComparisonEquals, "stage")},
			},
		}

		tests := []struct {
			name string
			req  Request
			want Category
		}{
			{
				name: "全て一致",
				req:  Request{ClientIP: "10.0.0.1", Header: header("User-Agent", "bot", "X-Env", "stage")},
				want: CategoryNone,
			},
			{
				name: "IPが不一致",
				req:  Request{ClientIP: "10.0.0.9", Header: header("User-Agent", "bot", "X-Env", "stage")},
				want: CategoryAddress,
			},
			{
				name: "User-Agentが不一致",
				req:  Request{ClientIP: "10.0.0.1", Header: header("User-Agent", "curl", "X-Env", "stage")},
				want: CategoryAgent,
			},
			{
				name: "ヘッダーが不一致",
				req:  Request{ClientIP: "10.0.0.1", Header: header("User-Agent", "bot", "X-Env", "prod")},
				want: CategoryHeader,
			},
		}
		for _, tt := range tests {
			d, err := Check(ac, tt.req)
			if err != nil {
				t.Fatalf("%s: Check()でエラーが発生: %v", tt.name, err)
			}
			if d.DeniedBy != tt.want || d.Allowed != (tt.want == CategoryNone) {
				t.Errorf("%s: Check() = %+v, want DeniedBy=%q", tt.name, d, tt.want)
			}
		}
	})

	t.Run("不正な正規表現はエラーとして返すこと", func(t *testing.T) {
		t.Parallel()

		ac := &schema.AccessControl{AgentRules: []schema.ComparisonRule{
			{Comparison: schema.ComparisonRegex, Expected: "("},
		}}
		_, err := Check(ac, Request{Header: header("User-Agent", "bot")})
		if !errors.Is(err, ErrInvalidPattern) {
			t.Errorf("Check() = %v, want %v", err, ErrInvalidPattern)
		}
	})
}
