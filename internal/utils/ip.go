package utils

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxLoggedIPLen = 64

// 代理可能写入的来源头，仅用于日志排查
var forwardHeaders = []string{
	"CF-Connecting-IP",
	"X-Real-IP",
	"X-Forwarded-For",
}

// NotifySourceIP 回调日志中的来源地址。
// 以 gin 按可信代理解析出的 ClientIP 为准；转发头声称的地址与之不同时追加在后面，
// 形如 "10.0.0.8 (claimed 1.2.3.4)"。该值不参与白名单判断。
func NotifySourceIP(c *gin.Context) string {
	ip := c.ClientIP()
	claimed := claimedIP(c)
	if claimed == "" || claimed == ip {
		return ip
	}
	out := ip + " (claimed " + claimed + ")"
	if len(out) > maxLoggedIPLen {
		out = out[:maxLoggedIPLen]
	}
	return out
}

// claimedIP 转发头中第一个合法地址
func claimedIP(c *gin.Context) string {
	for _, header := range forwardHeaders {
		for _, ip := range strings.Split(c.GetHeader(header), ",") {
			ip = strings.TrimSpace(ip)
			if ip != "" && net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	return ""
}
