package constant

// ErrorInfo 错误信息结构
type ErrorInfo struct {
	CN string `json:"cn"` // 中文错误信息
	EN string `json:"en"` // 英文错误信息
}

// ErrorMessages 错误信息映射
var ErrorMessages = map[int]ErrorInfo{
	// 系统错误
	CodeSuccess:            {"操作成功", "Success"},
	CodeSystemError:        {"系统错误", "System error"},
	CodeDatabaseError:      {"数据库错误", "Database error"},
	CodeRedisError:         {"缓存服务错误", "Redis error"},
	CodeInternalError:      {"内部服务错误", "Internal error"},
	CodeServiceUnavailable: {"服务暂时不可用", "Service unavailable"},
	CodeTimeout:            {"请求处理超时", "Request timeout"},

	// 参数错误
	CodeInvalidParams:     {"参数格式错误", "Invalid parameters"},
	CodeMissingParams:     {"缺少必要参数", "Missing parameters"},
	CodeParamsFormatError: {"参数值格式不正确", "Parameter format error"},

	// 认证错误
	CodeUnauthorized:     {"未授权访问", "Unauthorized"},
	CodeSignatureError:   {"签名验证失败", "Signature mismatch"},
	CodeAccessDenied:     {"访问权限不足", "Access denied"},
	CodeIPNotWhitelisted: {"IP不在白名单内", "IP not whitelisted"},

	// 订单相关错误
	CodeOrderNotFound:        {"订单不存在或未支付成功", "Order not found"},
	CodeOrderNumberCollision: {"订单号冲突", "Order number collision"},
	CodeOrderStatusInvalid:   {"订单状态无效", "Order status invalid"},
	CodeOrderAmountInvalid:   {"订单金额无效", "Order amount invalid"},
	CodeOrderMerchantInvalid: {"商户号不匹配", "Merchant id mismatch"},

	// 支付相关错误
	CodePaymentFailed:     {"支付失败", "Payment failed"},
	CodePaymentProcessing: {"支付处理中", "Payment processing"},

	// 对账入账错误
	CodeReconMissingCredit: {"订单缺少入账数量", "Missing credit amount"},
	CodeReconBalanceRead:   {"读取用户余额失败", "Balance read failed"},
	CodeReconBalanceWrite:  {"写入用户余额失败", "Balance write failed"},
	CodeReconLedgerWrite:   {"回写订单同步状态失败", "Ledger write failed"},
	CodeReconInProgress:    {"订单正在入账中", "Reconciliation in progress"},

	// 账户相关错误
	CodeAccountNotFound: {"账户不存在", "Account not found"},
}
