package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// 网关协议字段名
const (
	FieldPid         = "pid"
	FieldType        = "type"
	FieldOutTradeNo  = "out_trade_no"
	FieldTradeNo     = "trade_no"
	FieldNotifyURL   = "notify_url"
	FieldReturnURL   = "return_url"
	FieldName        = "name"
	FieldMoney       = "money"
	FieldParam       = "param"
	FieldTradeStatus = "trade_status"
	FieldSign        = "sign"
	FieldSignType    = "sign_type"
)

// PaymentOrder 发往网关的下单参数
type PaymentOrder struct {
	Pid        string
	Type       string
	OutTradeNo string
	NotifyURL  string
	ReturnURL  string
	Name       string
	Money      decimal.Decimal
	Param      string
}

// Params 按网关字段名展开，空值由签名原串剔除
func (o PaymentOrder) Params() map[string]string {
	return map[string]string{
		FieldPid:        o.Pid,
		FieldType:       o.Type,
		FieldOutTradeNo: o.OutTradeNo,
		FieldNotifyURL:  o.NotifyURL,
		FieldReturnURL:  o.ReturnURL,
		FieldName:       o.Name,
		FieldMoney:      o.Money.String(),
		FieldParam:      o.Param,
	}
}

// PaymentNotification 网关异步通知，验签通过前不可信
type PaymentNotification struct {
	Pid         string
	TradeNo     string
	OutTradeNo  string
	Type        string
	Name        string
	Money       string
	TradeStatus string
	Param       string
	Sign        string
	SignType    string
}

func NewPaymentNotification(params map[string]string) PaymentNotification {
	return PaymentNotification{
		Pid:         params[FieldPid],
		TradeNo:     params[FieldTradeNo],
		OutTradeNo:  params[FieldOutTradeNo],
		Type:        params[FieldType],
		Name:        params[FieldName],
		Money:       params[FieldMoney],
		TradeStatus: params[FieldTradeStatus],
		Param:       params[FieldParam],
		Sign:        params[FieldSign],
		SignType:    params[FieldSignType],
	}
}

// CreatePaymentReq 创建充值订单
type CreatePaymentReq struct {
	UserID  string `json:"userId" binding:"required,max=64"`              //充值用户
	Tokens  int64  `json:"tokens" binding:"required,gt=0,max=1000000000"` //购买代币数量，上限同入账上限
	PayType string `json:"payType" binding:"required,oneof=alipay wxpay"` //支付方式
	Name    string `json:"name" binding:"omitempty,max=64"`               //商品名称
	Money   string `json:"money" binding:"omitempty"`                     //客户端展示的金额，需与单价计算结果一致
}

// CreatePaymentResp 创建充值订单返回
type CreatePaymentResp struct {
	OrderNo string `json:"orderNo"`
	PayURL  string `json:"payUrl"`
	Money   string `json:"money"`
}

// TransactionVo 订单查询返回
type TransactionVo struct {
	OrderNo     string          `json:"orderNo"`
	TradeNo     string          `json:"tradeNo"`
	UserID      string          `json:"userId"`
	Name        string          `json:"name"`
	PayType     string          `json:"payType"`
	Money       decimal.Decimal `json:"money"`
	TradeStatus string          `json:"tradeStatus"`
	SyncStatus  string          `json:"syncStatus"`
	SyncError   string          `json:"syncError,omitempty"`
	SyncedAt    *time.Time      `json:"syncedAt,omitempty"`
	PaidAt      *time.Time      `json:"paidAt,omitempty"`
	CreateTime  time.Time       `json:"createTime"`
}

// ReconcileResp 人工补单返回
type ReconcileResp struct {
	OrderNo        string `json:"orderNo"`
	Success        bool   `json:"success"`
	UserID         string `json:"userId,omitempty"`
	TokensAdded    int64  `json:"tokensAdded"`
	AlreadySynced  bool   `json:"alreadySynced"`
	MarkerRepaired bool   `json:"markerRepaired"`
	ErrorKind      string `json:"errorKind,omitempty"`
	Error          string `json:"error,omitempty"`
}
