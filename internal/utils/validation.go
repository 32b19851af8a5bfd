package utils

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationMsg 字段校验失败的可读描述
func ValidationMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s 不能为空", fe.Field())
	case "gt":
		return fmt.Sprintf("%s 必须大于 %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s 长度不能超过 %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s 取值必须是 [%s] 之一", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s 校验失败: %s", fe.Field(), fe.Tag())
}

// ValidationErrors 将 binding 错误展开为字段列表，非字段错误返回 nil
func ValidationErrors(err error) []map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make([]map[string]string, 0, len(ve))
	for _, fe := range ve {
		out = append(out, map[string]string{
			"field": fe.Field(),
			"error": ValidationMsg(fe),
		})
	}
	return out
}
