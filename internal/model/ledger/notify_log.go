package ledgermodel

import "time"

// NotifyLog 网关回调日志，按月 + CRC32 分表 pay_notify_log_{YYYYMM}_p{n}
type NotifyLog struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderNo   string    `gorm:"column:order_no;type:varchar(32);not null;index:idx_order_no" json:"orderNo"`
	TradeNo   string    `gorm:"column:trade_no;type:varchar(64);not null;default:''" json:"tradeNo"`
	TraceID   string    `gorm:"column:trace_id;type:varchar(64);not null;default:''" json:"traceId"`
	Params    string    `gorm:"column:params;type:text" json:"params"`
	Verified  bool      `gorm:"column:verified;not null" json:"verified"`
	Status    string    `gorm:"column:status;type:varchar(16);not null" json:"status"` // success / failed
	ErrorMsg  string    `gorm:"column:error_msg;type:varchar(512);not null;default:''" json:"errorMsg"`
	IP        string    `gorm:"column:ip;type:varchar(64);not null;default:''" json:"ip"`
	LatencyMs int64     `gorm:"column:latency_ms;not null;default:0" json:"latencyMs"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"createdAt"`
}
