package notify

import (
	"fmt"
	"strings"
	"time"

	"token-pay-api/internal/utils/timeutil"
)

// 告警级别
const (
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Alerter 运维告警
type Alerter interface {
	Alert(level, title, content string)
}

// Nop 未配置机器人时使用
type Nop struct{}

func (Nop) Alert(string, string, string) {}

// ReconcileFailedContent 入账失败告警正文
func ReconcileFailedContent(orderNo, kind string, cause error) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*订单号:* %s\n", escapeMarkdown(orderNo)))
	sb.WriteString(fmt.Sprintf("*失败类型:* %s\n", escapeMarkdown(kind)))
	if cause != nil {
		sb.WriteString(fmt.Sprintf("*原因:* `%s`\n", escapeMarkdown(cause.Error())))
	}
	sb.WriteString(fmt.Sprintf("*时间:* %s\n", timeutil.FormatShanghai(time.Now())))
	return sb.String()
}

// escapeMarkdown 转义 Telegram Markdown V2 特殊字符
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"(", "\\(",
		")", "\\)",
		"~", "\\~",
		"`", "\\`",
		">", "\\>",
		"#", "\\#",
		"+", "\\+",
		"-", "\\-",
		"=", "\\=",
		"|", "\\|",
		"{", "\\{",
		"}", "\\}",
		".", "\\.",
		"!", "\\!",
	)
	return replacer.Replace(s)
}
