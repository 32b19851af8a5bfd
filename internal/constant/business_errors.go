package constant

// 业务级错误码 (2xxx)

// 订单相关错误码
const (
	CodeOrderNotFound        = 2100 // 订单不存在或未支付成功
	CodeOrderNumberCollision = 2101 // 订单号冲突，可重新生成后重试
	CodeOrderStatusInvalid   = 2102 // 订单状态无效，无法进行当前操作
	CodeOrderAmountInvalid   = 2103 // 订单金额无效或与网关通知不一致
	CodeOrderMerchantInvalid = 2104 // 网关通知的商户号与配置不一致
)

// 支付相关错误码
const (
	CodePaymentFailed     = 2300 // 支付失败
	CodePaymentProcessing = 2301 // 支付处理中，请勿重复提交
)

// 对账入账相关错误码
const (
	CodeReconMissingCredit = 2800 // 订单缺少入账代币数量或用户
	CodeReconBalanceRead   = 2801 // 读取用户余额失败
	CodeReconBalanceWrite  = 2802 // 写入用户余额失败
	CodeReconLedgerWrite   = 2803 // 回写支付订单同步状态失败
	CodeReconInProgress    = 2804 // 同一订单正在入账中
)

// 账户相关错误码
const (
	CodeAccountNotFound = 2920 // 账户不存在
)
