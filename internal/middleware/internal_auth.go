package middleware

import (
	"crypto/subtle"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"token-pay-api/internal/constant"
	"token-pay-api/internal/utils"
)

const InternalTokenHeader = "X-Internal-Token"

// InternalAuth 运维接口：校验内部 token 且只允许内网来源
func InternalAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(InternalTokenHeader)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				utils.ErrorWithTrace(constant.CodeUnauthorized, c.GetString(TraceIDKey)))
			return
		}

		// 仅内网与本机
		ip := net.ParseIP(c.ClientIP())
		if ip == nil || !(ip.IsLoopback() || ip.IsPrivate()) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				utils.ErrorWithTrace(constant.CodeIPNotWhitelisted, c.GetString(TraceIDKey)))
			return
		}

		c.Next()
	}
}
