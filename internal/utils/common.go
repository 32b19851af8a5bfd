package utils

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// MapToJSON map转出为json
func MapToJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// MoneyEqual 按数值比较金额字符串，"10.00" 与 "10" 相等
func MoneyEqual(s string, d decimal.Decimal) bool {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return v.Equal(d)
}
