package dto

// ReconcileMessage 入账任务
type ReconcileMessage struct {
	OrderNo    string `json:"order_no"`
	Source     string `json:"source"`
	RetryCount int    `json:"retry_count"`
	Ts         int64  `json:"ts"`
}

// BalanceCreditedEvent 入账成功事件
type BalanceCreditedEvent struct {
	OrderNo    string `json:"order_no"`
	UserID     string `json:"user_id"`
	Tokens     int64  `json:"tokens"`
	Balance    int64  `json:"balance"`
	CreditedAt int64  `json:"credited_at"`
}
