package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"token-pay-api/internal/constant"
	"token-pay-api/internal/utils"
)

// 单 IP / CIDR / 通配符
func matchRule(ip, rule string) bool {
	if rule == ip {
		return true
	}

	// 前缀通配符 172.16.5.*
	if strings.HasSuffix(rule, "*") {
		prefix := strings.TrimSuffix(rule, "*")
		return strings.HasPrefix(ip, prefix)
	}

	// CIDR
	if _, cidr, err := net.ParseCIDR(rule); err == nil {
		return cidr.Contains(net.ParseIP(ip))
	}

	return false
}

// IPWhitelist 网关回调来源白名单，规则为空时不限制
func IPWhitelist(rules []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(rules) == 0 {
			c.Next()
			return
		}
		// 只信任可信代理转发的来源头
		ip := c.ClientIP()
		for _, rule := range rules {
			if matchRule(ip, strings.TrimSpace(rule)) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden,
			utils.ErrorWithTrace(constant.CodeIPNotWhitelisted, c.GetString(TraceIDKey)))
	}
}
