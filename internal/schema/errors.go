package schema

import (
	"fmt"
	"strings"
)

// Reason はConfigurationErrorの分類。
type Reason string

const (
	// ReasonMalformed はJSONとして解釈できないことを表す。
	ReasonMalformed Reason = "malformed"
	// ReasonRequired は必須フィールドが無いことを表す。
	ReasonRequired Reason = "required"
	// ReasonInvalidType はフィールドの型が不正であることを表す。
	ReasonInvalidType Reason = "invalid_type"
	// ReasonUnsupported は値が許可された候補に含まれないことを表す。
	ReasonUnsupported Reason = "unsupported"
	// ReasonInvalidPattern は正規表現がコンパイルできないことを表す。
	ReasonInvalidPattern Reason = "invalid_pattern"
)

// ConfigurationError はスキーマまたはオプションファイルの不正を表す。
type ConfigurationError struct {
	// Path は問題のあるファイルのパス。
	Path string `json:"path"`
	// Field は問題のあるフィールド。ファイル全体の場合は空。
	Field string `json:"field,omitempty"`
	// Reason はエラーの分類。
	Reason Reason `json:"reason"`
	// Suggestion は期待される値の候補。
	Suggestion string `json:"suggestion,omitempty"`
	// Err は原因となったエラー。
	Err error `json:"-"`
}

// Error はerrorインターフェースを実装する。
func (e *ConfigurationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Path, e.Reason)
	if e.Field != "" {
		fmt.Fprintf(&b, " field=%s", e.Field)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, " (expected %s)", e.Suggestion)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap は原因となったエラーを返す。
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ValidationErrors は1つのファイルに対する全ての検証エラー。
type ValidationErrors []*ConfigurationError

// Error はerrorインターフェースを実装する。
func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Fields は検証エラーのあったフィールド名を順に返す。
func (v ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(v))
	for _, e := range v {
		fields = append(fields, e.Field)
	}
	return fields
}

// EmptyLeafError はスキーマファイルもサブディレクトリも持たないディレクトリを表す。
// ファイルの作り忘れであり、ファイルの内容の不正とは区別する。
type EmptyLeafError struct {
	// Path は空のディレクトリのパス。
	Path string
}

// Error はerrorインターフェースを実装する。
func (e *EmptyLeafError) Error() string {
	return fmt.Sprintf("%s: スキーマが見つかりません。%s を作成してください", e.Path, schemaFileName)
}
