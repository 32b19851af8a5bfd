package rediskey

const prefix = "token-pay"

// ReconcileLockKey 订单入账互斥锁
func ReconcileLockKey(orderNo string) string {
	return prefix + ":reconcile:lock:" + orderNo
}

// 入账成功率与熔断标记，多实例共享
const (
	SettlementSuccessRateKey = prefix + ":settlement:success_rate"
	SettlementDegradedKey    = prefix + ":settlement:degraded"
)
