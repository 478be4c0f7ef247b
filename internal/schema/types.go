package schema

import (
	"net/http"
	"regexp"
	"strings"
)

// Comparison はゲートで使用する文字列比較の種類を表す。
type Comparison string

const (
	// ComparisonEquals は完全一致を表す。
	ComparisonEquals Comparison = "equals"
	// ComparisonEqualsIgnoreCase は大文字小文字を区別しない一致を表す。
	ComparisonEqualsIgnoreCase Comparison = "equals_ignore_case"
	// ComparisonIncludes は部分文字列を含むことを表す。
	ComparisonIncludes Comparison = "includes"
	// ComparisonStartsWith は前方一致を表す。
	ComparisonStartsWith Comparison = "starts_with"
	// ComparisonEndsWith は後方一致を表す。
	ComparisonEndsWith Comparison = "ends_with"
	// ComparisonRegex は正規表現マッチを表す。
	ComparisonRegex Comparison = "regex"
)

// comparisonAliases は設定ファイルで受け付ける比較名と正規名の対応。
// equals_ignore_casing は旧来の綴り。
var comparisonAliases = map[string]Comparison{
	"equals":               ComparisonEquals,
	"equals_ignore_case":   ComparisonEqualsIgnoreCase,
	"equals_ignore_casing": ComparisonEqualsIgnoreCase,
	"includes":             ComparisonIncludes,
	"starts_with":          ComparisonStartsWith,
	"ends_with":            ComparisonEndsWith,
	"regex":                ComparisonRegex,
}

// supportedComparisons はエラーメッセージの候補として提示する比較名。
const supportedComparisons = "equals | equals_ignore_case | regex | includes | starts_with | ends_with"

// ParseComparison は大文字小文字を区別せずに比較名を解釈する。
func ParseComparison(s string) (Comparison, bool) {
	c, ok := comparisonAliases[strings.ToLower(s)]
	return c, ok
}

// ComparisonRule は観測された1つの文字列に適用する比較ルール。
type ComparisonRule struct {
	// Comparison は比較の種類。
	Comparison Comparison `json:"comparison"`
	// Expected は比較対象の期待値。regexの場合はパターン。
	Expected string `json:"value"`

	// pattern はロード時にコンパイル済みの正規表現。regex以外ではnil。
	pattern *regexp.Regexp
}

// NewComparisonRule は比較ルールを生成する。regexの場合はパターンをコンパイルする。
func NewComparisonRule(c Comparison, expected string) (ComparisonRule, error) {
	rule := ComparisonRule{Comparison: c, Expected: expected}
	if c == ComparisonRegex {
		re, err := regexp.Compile(expected)
		if err != nil {
			return ComparisonRule{}, err
		}
		rule.pattern = re
	}
	return rule, nil
}

// Pattern はコンパイル済みの正規表現を返す。未コンパイルの場合はnil。
func (r ComparisonRule) Pattern() *regexp.Regexp {
	return r.pattern
}

// HeaderRule は指定ヘッダーに適用する比較ルール。
type HeaderRule struct {
	// Header は検査対象のヘッダー名。
	Header string `json:"header"`
	ComparisonRule
}

// AccessControl はルートに設定されたアクセス制御。
// 各カテゴリが空の場合、そのカテゴリによる制限はない。
type AccessControl struct {
	// Addresses は許可する呼び出し元IPの集合。
	Addresses []string `json:"addresses,omitempty"`
	// AgentRules はUser-Agentヘッダーに適用するルール。
	AgentRules []ComparisonRule `json:"agent,omitempty"`
	// HeaderRules は任意のヘッダーに適用するルール。
	HeaderRules []HeaderRule `json:"headers,omitempty"`
}

// IsZero はアクセス制御が何も設定されていないかを返す。
func (a *AccessControl) IsZero() bool {
	return a == nil || (len(a.Addresses) == 0 && len(a.AgentRules) == 0 && len(a.HeaderRules) == 0)
}

// ForwardTarget は変換後のペイロードを転送する先。
type ForwardTarget struct {
	// Address は転送先のURL。
	Address string `json:"address"`
	// Method はPOSTまたはPUT。
	Method string `json:"method"`
}

// RouteDefinition はスキーマディレクトリから読み込んだ1つのルート。
// 生成後は変更しない。
type RouteDefinition struct {
	// Route はルートディレクトリからの相対パスで表したURLパス。
	Route string `json:"route"`
	// Method はルートのHTTPメソッド。
	Method string `json:"method"`
	// Template はリクエストボディを変換するためのテンプレート。
	Template map[string]any `json:"schema"`
	// AccessControl はアクセス制御。未設定の場合はnil。
	AccessControl *AccessControl `json:"access_control,omitempty"`
	// Forward は転送先。未設定の場合はnil。
	Forward *ForwardTarget `json:"forward,omitempty"`
}

// defaultMethod はoptions.jsonが存在しない場合のメソッド。
const defaultMethod = http.MethodGet
