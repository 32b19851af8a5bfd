package ledgermodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"token-pay-api/internal/utils"
)

// Transaction 支付订单（支付库 pay_transaction）
type Transaction struct {
	ID              uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderNo         string          `gorm:"column:order_no;type:varchar(32);not null;uniqueIndex:uk_order_no" json:"orderNo"` // 商户订单号
	TradeNo         string          `gorm:"column:trade_no;type:varchar(64);not null;default:''" json:"tradeNo"`              // 网关交易号
	UserID          string          `gorm:"column:user_id;type:varchar(64);not null;index:idx_user" json:"userId"`            // 下单用户
	Name            string          `gorm:"column:name;type:varchar(64);not null" json:"name"`                                // 商品名称
	PayType         string          `gorm:"column:pay_type;type:varchar(20);not null" json:"payType"`                         // 支付方式
	Money           decimal.Decimal `gorm:"column:money;type:decimal(18,2);not null" json:"money"`                            // 订单金额
	TradeStatus     string          `gorm:"column:trade_status;type:varchar(16);not null;index:idx_trade_status" json:"tradeStatus"`
	Param           string          `gorm:"column:param;type:varchar(512);not null;default:''" json:"param"` // 透传参数，携带入账数量与用户
	SyncStatus      string          `gorm:"column:sync_status;type:varchar(16);not null;default:''" json:"syncStatus"`
	SyncedAt        *time.Time      `gorm:"column:synced_at" json:"syncedAt"`
	SyncAttemptedAt *time.Time      `gorm:"column:sync_attempted_at" json:"syncAttemptedAt"`
	SyncError       string          `gorm:"column:sync_error;type:varchar(512);not null;default:''" json:"syncError"`
	PaidAt          *time.Time      `gorm:"column:paid_at" json:"paidAt"`
	CreateTime      time.Time       `gorm:"column:create_time;autoCreateTime" json:"createTime"`
	UpdateTime      time.Time       `gorm:"column:update_time;autoUpdateTime" json:"updateTime"`
}

func (Transaction) TableName() string {
	return "pay_transaction"
}

// CreditParam 订单透传参数中的入账信息
type CreditParam struct {
	Tokens int64  `json:"tokens"`
	UserID string `json:"userId"`
}

// MaxCreditTokens 单笔订单可入账的代币上限
const MaxCreditTokens int64 = 1_000_000_000

var ErrInvalidCreditParam = errors.New("invalid credit param")

// Encode 序列化为网关 param 字段
func (p CreditParam) Encode() string {
	b, _ := json.Marshal(p)
	return string(b)
}

// ParseCreditParam 解析透传参数；tokens 兼容字符串与数字，缺失、<=0 或超过上限视为无效
func ParseCreditParam(raw string) (CreditParam, error) {
	var p CreditParam
	if strings.TrimSpace(raw) == "" {
		return p, fmt.Errorf("%w: empty payload", ErrInvalidCreditParam)
	}
	var loose struct {
		Tokens *utils.StringOrNumber `json:"tokens"`
		UserID string                `json:"userId"`
	}
	if err := json.Unmarshal([]byte(raw), &loose); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidCreditParam, err)
	}
	tokens, err := parseTokens(loose.Tokens)
	if err != nil {
		return p, fmt.Errorf("%w: tokens %v", ErrInvalidCreditParam, err)
	}
	if tokens <= 0 {
		return p, fmt.Errorf("%w: tokens must be positive", ErrInvalidCreditParam)
	}
	if tokens > MaxCreditTokens {
		return p, fmt.Errorf("%w: tokens exceed %d", ErrInvalidCreditParam, MaxCreditTokens)
	}
	if strings.TrimSpace(loose.UserID) == "" {
		return p, fmt.Errorf("%w: missing userId", ErrInvalidCreditParam)
	}
	p.Tokens = tokens
	p.UserID = loose.UserID
	return p, nil
}

func parseTokens(v *utils.StringOrNumber) (int64, error) {
	if v == nil || strings.TrimSpace(string(*v)) == "" {
		return 0, errors.New("missing")
	}
	return strconv.ParseInt(strings.TrimSpace(string(*v)), 10, 64)
}

// CreditParam 从订单透传参数中解析入账信息
func (t *Transaction) CreditParam() (CreditParam, error) {
	return ParseCreditParam(t.Param)
}
