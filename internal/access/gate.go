// Package access はルートに設定されたアクセス制御をリクエストに適用する。
//
// 比較ルール1つを観測値1つに適用する Evaluate と、許可IP・User-Agent・
// ヘッダーの3つのカテゴリを順に検査する Check を提供する。いずれも状態を持たない。
package access

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nao1215/schemagate/internal/schema"
)

// ErrInvalidPattern はregexルールのパターンがコンパイルできないことを表す。
var ErrInvalidPattern = errors.New("正規表現が不正です")

// ErrUnknownComparison は未知の比較種別を表す。
var ErrUnknownComparison = errors.New("未対応の比較種別です")

// Evaluate は比較ルールを観測値に適用する。
// 不正な正規表現は偽ではなく設定エラーとして返す。
func Evaluate(rule schema.ComparisonRule, observed string) (bool, error) {
	switch rule.Comparison {
	case schema.ComparisonEquals:
		return observed == rule.Expected, nil
	case schema.ComparisonEqualsIgnoreCase:
		return strings.EqualFold(observed, rule.Expected), nil
	case schema.ComparisonIncludes:
		return strings.Contains(observed, rule.Expected), nil
	case schema.ComparisonStartsWith:
		return strings.HasPrefix(observed, rule.Expected), nil
	case schema.ComparisonEndsWith:
		return strings.HasSuffix(observed, rule.Expected), nil
	case schema.ComparisonRegex:
		re := rule.Pattern()
		if re == nil {
			compiled, err := regexp.Compile(rule.Expected)
			if err != nil {
				return false, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, rule.Expected, err)
			}
			re = compiled
		}
		return re.MatchString(observed), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownComparison, rule.Comparison)
	}
}
