package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate はオプション値の列挙チェックに使用するバリデータ。
var validate = validator.New(validator.WithRequiredStructEnabled())

const (
	routeMethods   = "POST PUT DELETE"
	forwardMethods = "POST PUT"
)

// options はoptions.jsonを検証した結果。
type options struct {
	method  string
	access  *AccessControl
	forward *ForwardTarget
}

// optionsParser はoptions.jsonのフィールドを順に検証し、エラーを蓄積する。
type optionsParser struct {
	path string
	errs ValidationErrors
}

// parseOptions はoptions.jsonの内容を厳密に解釈する。
// 不正なフィールドは全てValidationErrorsとして返す。
func parseOptions(path string, data []byte) (options, error) {
	p := &optionsParser{path: path}

	var decoded any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		p.fail("", ReasonMalformed, "JSON object", err)
		return options{}, p.errs
	}
	raw, ok := decoded.(map[string]any)
	if !ok {
		p.fail("", ReasonInvalidType, "JSON object", nil)
		return options{}, p.errs
	}

	opts := options{
		method:  p.method(raw),
		forward: p.forward(raw),
	}
	access := &AccessControl{
		Addresses:   p.addresses(raw),
		AgentRules:  p.agentRules(raw),
		HeaderRules: p.headerRules(raw),
	}
	if !access.IsZero() {
		opts.access = access
	}

	if len(p.errs) > 0 {
		return options{}, p.errs
	}
	return opts, nil
}

func (p *optionsParser) fail(field string, reason Reason, suggestion string, err error) {
	p.errs = append(p.errs, &ConfigurationError{
		Path:       p.path,
		Field:      field,
		Reason:     reason,
		Suggestion: suggestion,
		Err:        err,
	})
}

// lookup はフィールドを取得する。nullは未設定として扱う。
func lookup(raw map[string]any, key string) (any, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// method はルートのHTTPメソッドを検証する。
func (p *optionsParser) method(raw map[string]any) string {
	v, ok := lookup(raw, "method")
	if !ok {
		p.fail("method", ReasonRequired, "POST | PUT | DELETE", nil)
		return ""
	}
	s, ok := v.(string)
	if !ok {
		p.fail("method", ReasonInvalidType, "string", nil)
		return ""
	}
	method := strings.ToUpper(s)
	if validate.Var(method, "oneof="+routeMethods) != nil {
		p.fail("method", ReasonUnsupported, "POST | PUT | DELETE", nil)
		return ""
	}
	return method
}

// forward は転送先の設定を検証する。
func (p *optionsParser) forward(raw map[string]any) *ForwardTarget {
	v, ok := lookup(raw, "forward")
	if !ok {
		return nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		p.fail("forward", ReasonInvalidType, `{"address": string, "method": "POST" | "PUT"}`, nil)
		return nil
	}

	before := len(p.errs)
	target := &ForwardTarget{}

	switch address := obj["address"].(type) {
	case nil:
		p.fail("forward.address", ReasonRequired, "string", nil)
	case string:
		if validate.Var(address, "required,url") != nil {
			p.fail("forward.address", ReasonUnsupported, "absolute URL", nil)
		}
		target.Address = address
	default:
		p.fail("forward.address", ReasonInvalidType, "string", nil)
	}

	switch method := obj["method"].(type) {
	case nil:
		p.fail("forward.method", ReasonRequired, "POST | PUT", nil)
	case string:
		target.Method = strings.ToUpper(method)
		if validate.Var(target.Method, "oneof="+forwardMethods) != nil {
			p.fail("forward.method", ReasonUnsupported, "POST | PUT", nil)
		}
	default:
		p.fail("forward.method", ReasonInvalidType, "string", nil)
	}

	if len(p.errs) > before {
		return nil
	}
	return target
}

// addresses は許可IPの設定を検証する。文字列1つの場合は要素1つの集合とする。
func (p *optionsParser) addresses(raw map[string]any) []string {
	v, ok := lookup(raw, "addresses")
	if !ok {
		return nil
	}

	var items []any
	switch a := v.(type) {
	case string:
		items = []any{a}
	case []any:
		items = a
	default:
		p.fail("addresses", ReasonInvalidType, "string or array of string", nil)
		return nil
	}

	seen := make(map[string]struct{}, len(items))
	addresses := make([]string, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("addresses[%d]", i)
		s, ok := item.(string)
		if !ok {
			p.fail(field, ReasonInvalidType, "string", nil)
			continue
		}
		if validate.Var(s, "ip") != nil {
			p.fail(field, ReasonUnsupported, "IP address", nil)
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		addresses = append(addresses, s)
	}
	return addresses
}

// agentRules はUser-Agentのルールを検証する。
func (p *optionsParser) agentRules(raw map[string]any) []ComparisonRule {
	v, ok := lookup(raw, "agent")
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		p.fail("agent", ReasonInvalidType, "array of {comparison, value}", nil)
		return nil
	}

	rules := make([]ComparisonRule, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("agent[%d]", i)
		obj, ok := item.(map[string]any)
		if !ok {
			p.fail(field, ReasonInvalidType, `{"comparison": "equals", "value": string}`, nil)
			continue
		}
		if rule, ok := p.rule(field, obj); ok {
			rules = append(rules, rule)
		}
	}
	return rules
}

// headerRules はヘッダーのルールを検証する。
func (p *optionsParser) headerRules(raw map[string]any) []HeaderRule {
	v, ok := lookup(raw, "headers")
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		p.fail("headers", ReasonInvalidType, "array of {header, comparison, value}", nil)
		return nil
	}

	rules := make([]HeaderRule, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("headers[%d]", i)
		obj, ok := item.(map[string]any)
		if !ok {
			p.fail(field, ReasonInvalidType, `{"header": string, "comparison": "equals", "value": string}`, nil)
			continue
		}
		header, headerOK := p.nonEmptyString(field+".header", obj["header"])
		rule, ruleOK := p.rule(field, obj)
		if headerOK && ruleOK {
			rules = append(rules, HeaderRule{Header: header, ComparisonRule: rule})
		}
	}
	return rules
}

// rule はcomparisonとvalueの組を検証して比較ルールを生成する。
func (p *optionsParser) rule(field string, obj map[string]any) (ComparisonRule, bool) {
	name, nameOK := p.nonEmptyString(field+".comparison", obj["comparison"])
	value, valueOK := p.nonEmptyString(field+".value", obj["value"])
	if !nameOK || !valueOK {
		return ComparisonRule{}, false
	}

	comparison, ok := ParseComparison(name)
	if !ok {
		p.fail(field+".comparison", ReasonUnsupported, supportedComparisons, nil)
		return ComparisonRule{}, false
	}

	rule, err := NewComparisonRule(comparison, value)
	if err != nil {
		p.fail(field+".value", ReasonInvalidPattern, "RE2 regular expression", err)
		return ComparisonRule{}, false
	}
	return rule, true
}

// nonEmptyString は空でない文字列であることを検証する。
func (p *optionsParser) nonEmptyString(field string, v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		p.fail(field, ReasonRequired, "string", nil)
	case string:
		if s == "" {
			p.fail(field, ReasonRequired, "non-empty string", nil)
			return "", false
		}
		return s, true
	default:
		p.fail(field, ReasonInvalidType, "string", nil)
	}
	return "", false
}

// AsValidationErrors はerrがValidationErrorsの場合にそれを取り出す。
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
