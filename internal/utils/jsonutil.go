package utils

import (
	"encoding/json"
	"strings"
)

// StringOrNumber 订单透传参数中的数量字段，兼容 "30" 与 30 两种写法；
// 数字保留原始文本，由调用方按 int64 解析并校验范围。
type StringOrNumber string

// UnmarshalJSON 支持自动兼容 string 或 number
func (s *StringOrNumber) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		*s = ""
		return nil
	}

	// 带引号的按字符串解码
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = StringOrNumber(str)
		return nil
	}

	// 数字、null 等保留原始文本
	*s = StringOrNumber(strings.TrimSpace(string(b)))
	return nil
}
