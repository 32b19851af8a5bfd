package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"token-pay-api/internal/middleware"
)

// Handlers 路由依赖
type Handlers struct {
	Payment       *PaymentHandler
	Notify        *NotifyHandler
	Balance       *BalanceHandler
	Health        *HealthHandler
	InternalToken string
	NotifyIPs     []string
}

// NewRouter 注册全部路由
func NewRouter(h Handlers, log logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	// 设置可信代理 IP（如本地或内网）
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "192.168.0.0/16"})
	r.Use(middleware.Trace(), middleware.Recover(log), middleware.RequestLogger(log), middleware.Metrics())

	r.GET("/healthz", h.Health.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/payments", h.Payment.Create)
		notifyIPs := middleware.IPWhitelist(h.NotifyIPs)
		v1.GET("/payments/notify", notifyIPs, h.Notify.Notify)
		v1.POST("/payments/notify", notifyIPs, h.Notify.Notify)
		v1.GET("/payments/:orderNo", h.Payment.Get)

		v1.GET("/users/:userId/balance", h.Balance.Get)
		v1.GET("/users/:userId/credits", h.Balance.Credits)
	}

	internal := v1.Group("/internal", middleware.InternalAuth(h.InternalToken))
	{
		internal.POST("/payments/:orderNo/reconcile", h.Payment.Reconcile)
	}
	return r
}
