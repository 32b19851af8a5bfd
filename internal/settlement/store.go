package settlement

import (
	"context"
	"errors"
	"time"

	accountmodel "token-pay-api/internal/model/account"
	ledgermodel "token-pay-api/internal/model/ledger"
)

// 存储层约定的哨兵错误，由 dao 实现返回
var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrBalanceConflict 余额在读与写之间被其他入账修改
	ErrBalanceConflict = errors.New("balance changed concurrently")
	// ErrCreditExists 该订单的入账流水已存在，余额已加过
	ErrCreditExists = errors.New("credit already applied")
	// ErrDuplicateOrderNo 订单号唯一索引冲突
	ErrDuplicateOrderNo = errors.New("duplicate order number")
	// ErrBalanceOverflow 加款后余额超出 int64
	ErrBalanceOverflow = errors.New("balance overflow")
)

// SyncFields 回写同步状态时附带的字段
type SyncFields struct {
	At    time.Time
	Error string
	// From 非空时仅在当前 sync_status 属于其中之一时更新
	From []string
}

// LedgerStore 支付库（订单账本）
type LedgerStore interface {
	// GetTransactionByOrderNumber 仅返回 trade_status=SUCCESS 的订单，否则 ErrNotFound
	GetTransactionByOrderNumber(ctx context.Context, orderNo string) (*ledgermodel.Transaction, error)
	// ClaimSync 将 sync_status 从 {未同步, FAILED, 超时的 PROCESSING} 原子地置为 PROCESSING
	ClaimSync(ctx context.Context, orderNo string, lease time.Duration) (bool, error)
	UpdateTransactionSyncStatus(ctx context.Context, orderNo, status string, fields SyncFields) error
}

// BalanceStore 用户库（代币余额）
type BalanceStore interface {
	// GetUserBalance 不存在时返回 nil, nil
	GetUserBalance(ctx context.Context, userID string) (*accountmodel.UserBalance, error)
	// CreateUserBalance 创建余额行并写入该订单的入账流水，二者同一事务
	CreateUserBalance(ctx context.Context, userID string, initial int64, orderNo string) error
	// UpdateUserBalance 仅当当前余额等于 expected 时写入 newBalance，并写入入账流水
	UpdateUserBalance(ctx context.Context, userID string, expected, newBalance int64, orderNo string) error
	// HasCredit 该订单是否已入账
	HasCredit(ctx context.Context, orderNo string) (bool, error)
}

// Locker 按订单号互斥
type Locker interface {
	// Acquire 获取锁；被占用时 ok=false
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}
