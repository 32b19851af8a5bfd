package constant

// 支付订单交易状态 trade_status
const (
	TradeStatusPending = "PENDING"
	TradeStatusSuccess = "SUCCESS"
)

// GatewayTradeSuccess 网关回调中表示支付成功的 trade_status
const GatewayTradeSuccess = "TRADE_SUCCESS"

// 入账同步状态 sync_status，空字符串表示未同步
const (
	SyncStatusUnset      = ""
	SyncStatusProcessing = "PROCESSING"
	SyncStatusSuccess    = "SUCCESS"
	SyncStatusFailed     = "FAILED"
)

// SignTypeMD5 网关协议要求的签名类型
const SignTypeMD5 = "MD5"
