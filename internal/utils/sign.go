package utils

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"token-pay-api/internal/constant"
)

const (
	fieldSign     = "sign"
	fieldSignType = "sign_type"
	fieldMoney    = "money"
)

// Canonicalize 生成签名原串：剔除空值与 sign/sign_type，money 归一为最短十进制，按 key 字节序排序后以 & 拼接
func Canonicalize(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == fieldSign || k == fieldSignType || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		if k == fieldMoney {
			sb.WriteString(NormalizeMoney(params[k]))
		} else {
			sb.WriteString(params[k])
		}
	}
	return sb.String()
}

// NormalizeMoney "10.00" -> "10"；无法解析为数字时原样返回
func NormalizeMoney(v string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return v
	}
	return d.String()
}

// GenerateSign 生成签名 md5(原串 + 密钥)，小写 hex。
// MD5 仅因网关协议要求而使用，不得用于其他场景。
func GenerateSign(params map[string]string, secretKey string) string {
	hash := md5.Sum([]byte(Canonicalize(params) + secretKey))
	return hex.EncodeToString(hash[:])
}

// VerifySign 验证签名是否匹配，大小写敏感
func VerifySign(params map[string]string, secretKey string) bool {
	receivedSign := params[fieldSign]
	if receivedSign == "" {
		return false
	}
	return GenerateSign(params, secretKey) == receivedSign
}

// BuildPaymentURL 组装跳转网关的支付链接
func BuildPaymentURL(params map[string]string, secretKey, endpoint string) string {
	canonical := Canonicalize(params)
	hash := md5.Sum([]byte(canonical + secretKey))

	var sb strings.Builder
	sb.WriteString(endpoint)
	sb.WriteByte('?')
	sb.WriteString(canonical)
	sb.WriteString("&sign=")
	sb.WriteString(hex.EncodeToString(hash[:]))
	sb.WriteString("&sign_type=")
	sb.WriteString(constant.SignTypeMD5)
	return sb.String()
}
