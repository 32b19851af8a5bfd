package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"token-pay-api/internal/constant"
	"token-pay-api/internal/utils"
)

func Recover(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"path":    c.Request.URL.Path,
					"traceId": c.GetString(TraceIDKey),
				}).Errorf("panic: %v\n%s", r, debug.Stack())
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					utils.ErrorWithTrace(constant.CodeInternalError, c.GetString(TraceIDKey)))
			}
		}()
		c.Next()
	}
}
