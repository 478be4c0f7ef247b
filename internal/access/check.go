package access

import (
	"net/http"
	"net/netip"

	"github.com/nao1215/schemagate/internal/schema"
)

// Category はリクエストを拒否したアクセス制御のカテゴリ。
type Category string

const (
	// CategoryNone は拒否されていないことを表す。
	CategoryNone Category = ""
	// CategoryAddress は許可IPによる拒否。
	CategoryAddress Category = "address"
	// CategoryAgent はUser-Agentルールによる拒否。
	CategoryAgent Category = "agent"
	// CategoryHeader はヘッダールールによる拒否。
	CategoryHeader Category = "header"
)

// Request はアクセス制御の判定に必要なリクエスト情報。
type Request struct {
	// ClientIP は呼び出し元のIPアドレス。
	ClientIP string
	// Header はリクエストヘッダー。
	Header http.Header
}

// Decision はアクセス制御の判定結果。
type Decision struct {
	// Allowed はリクエストを許可するかどうか。
	Allowed bool
	// DeniedBy は拒否したカテゴリ。許可の場合はCategoryNone。
	DeniedBy Category
}

var allowed = Decision{Allowed: true}

func denied(c Category) Decision {
	return Decision{DeniedBy: c}
}

// Check は許可IP、User-Agent、ヘッダーの順にアクセス制御を適用する。
// 設定されたカテゴリは全て通過する必要があり、未設定のカテゴリは制限しない。
// User-Agentとヘッダーのルールは、いずれか1つが一致すれば許可となる。
func Check(ac *schema.AccessControl, req Request) (Decision, error) {
	if ac.IsZero() {
		return allowed, nil
	}

	if len(ac.Addresses) > 0 && !containsAddress(ac.Addresses, req.ClientIP) {
		return denied(CategoryAddress), nil
	}

	if len(ac.AgentRules) > 0 {
		agent := req.Header.Get("User-Agent")
		if agent == "" {
			return denied(CategoryAgent), nil
		}
		ok, err := anyMatch(ac.AgentRules, agent)
		if err != nil {
			return Decision{}, err
		}
		if !ok {
			return denied(CategoryAgent), nil
		}
	}

	if len(ac.HeaderRules) > 0 {
		ok, err := anyHeaderMatch(ac.HeaderRules, req.Header)
		if err != nil {
			return Decision{}, err
		}
		if !ok {
			return denied(CategoryHeader), nil
		}
	}

	return allowed, nil
}

// anyMatch はいずれかのルールが一致するかを返す。
func anyMatch(rules []schema.ComparisonRule, observed string) (bool, error) {
	for _, rule := range rules {
		ok, err := Evaluate(rule, observed)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// anyHeaderMatch は存在するヘッダーに対するルールのいずれかが一致するかを返す。
// ヘッダーが無い（または空の）ルールは評価せずに読み飛ばす。
func anyHeaderMatch(rules []schema.HeaderRule, header http.Header) (bool, error) {
	for _, rule := range rules {
		value := header.Get(rule.Header)
		if value == "" {
			continue
		}
		ok, err := Evaluate(rule.ComparisonRule, value)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// containsAddress は呼び出し元IPが許可IPに含まれるかを返す。
// IPv4射影IPv6アドレスはIPv4として比較する。
func containsAddress(addresses []string, clientIP string) bool {
	client, clientErr := netip.ParseAddr(clientIP)
	for _, a := range addresses {
		if a == clientIP {
			return true
		}
		if clientErr != nil {
			continue
		}
		addr, err := netip.ParseAddr(a)
		if err == nil && addr.Unmap() == client.Unmap() {
			return true
		}
	}
	return false
}
