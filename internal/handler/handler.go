package handler

import (
	"github.com/gin-gonic/gin"

	"token-pay-api/internal/middleware"
)

func traceID(c *gin.Context) string {
	return c.GetString(middleware.TraceIDKey)
}
