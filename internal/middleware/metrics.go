package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"token-pay-api/internal/metrics"
)

// Metrics 按路由模板统计耗时，未匹配的路由不计
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			return
		}
		metrics.HTTPServerDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
