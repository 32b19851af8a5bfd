package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"token-pay-api/internal/callback"
	"token-pay-api/internal/utils"
)

const (
	notifyAck  = "success"
	notifyFail = "fail"
)

type NotifyProcessor interface {
	HandleNotify(ctx context.Context, params map[string]string, meta callback.NotifyMeta) error
}

// NotifyHandler 网关异步通知，网关只认纯文本 success
type NotifyHandler struct {
	cb NotifyProcessor
}

func NewNotifyHandler(cb NotifyProcessor) *NotifyHandler {
	return &NotifyHandler{cb: cb}
}

// Notify 同时接受 GET query 与 POST form
func (h *NotifyHandler) Notify(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusOK, notifyFail)
		return
	}
	params := make(map[string]string, len(c.Request.Form))
	for k, v := range c.Request.Form {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	err := h.cb.HandleNotify(c.Request.Context(), params, callback.NotifyMeta{
		TraceID: traceID(c),
		IP:      utils.NotifySourceIP(c),
	})
	if err != nil {
		c.String(http.StatusOK, notifyFail)
		return
	}
	c.String(http.StatusOK, notifyAck)
}
