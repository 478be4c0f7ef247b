package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate は構造体タグに従って設定を検証する。
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// formatValidationErrors はvalidator.ValidationErrorsを読みやすいメッセージにまとめる。
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleValidationError(e))
	}
	return errors.New(strings.Join(messages, "; "))
}

func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s は必須です", field)
	case "min":
		return fmt.Sprintf("%s は %s 以上にしてください", field, e.Param())
	case "max":
		return fmt.Sprintf("%s は %s 以下にしてください", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s は %s より大きくしてください", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s は次のいずれかにしてください: %s", field, e.Param())
	case "hostname_port":
		return fmt.Sprintf("%s は host:port の形式にしてください", field)
	case "ip|cidr":
		return fmt.Sprintf("%s はIPアドレスまたはCIDRにしてください", field)
	default:
		return fmt.Sprintf("%s の検証に失敗しました: %s", field, e.Tag())
	}
}
