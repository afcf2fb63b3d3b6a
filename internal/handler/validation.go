package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/moody/internal/model"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator はリクエストDTO検証用のシングルトンを返す。
// エラーのフィールド名にはjsonタグの名前を使う。
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// validateRequest はDTOを検証し、最初に違反したフィールドの検証エラーを返す。
func validateRequest(dst any) *model.APIError {
	err := getValidator().Struct(dst)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return model.NewValidationError("body", err.Error())
	}
	fe := fieldErrs[0]
	return model.NewValidationError(fe.Field(), translateFieldError(fe))
}

func translateFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "必須です"
	case "max":
		return fmt.Sprintf("%s文字以内で指定してください", fe.Param())
	case "oneof":
		return fmt.Sprintf("%s のいずれかを指定してください", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s の条件を満たしていません", fe.Tag())
	}
}
