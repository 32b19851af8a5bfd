package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"token-pay-api/internal/constant"
	ledgermodel "token-pay-api/internal/model/ledger"
	"token-pay-api/internal/settlement"
)

// LedgerDao 支付库订单读写
type LedgerDao struct {
	DB *gorm.DB
}

func NewLedgerDao(db *gorm.DB) *LedgerDao {
	if db == nil {
		panic("[FATAL] ledger db cannot be nil")
	}
	return &LedgerDao{DB: db}
}

// CreateTransaction 新建订单；订单号冲突返回 settlement.ErrDuplicateOrderNo
func (r *LedgerDao) CreateTransaction(ctx context.Context, t *ledgermodel.Transaction) error {
	if err := r.DB.WithContext(ctx).Create(t).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("create transaction %s: %w", t.OrderNo, settlement.ErrDuplicateOrderNo)
		}
		return fmt.Errorf("create transaction %s: %w", t.OrderNo, err)
	}
	return nil
}

// GetByOrderNo 任意状态的订单
func (r *LedgerDao) GetByOrderNo(ctx context.Context, orderNo string) (*ledgermodel.Transaction, error) {
	var t ledgermodel.Transaction
	err := r.DB.WithContext(ctx).Where("order_no = ?", orderNo).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("transaction %s: %w", orderNo, settlement.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", orderNo, err)
	}
	return &t, nil
}

// GetTransactionByOrderNumber 仅返回已支付订单
func (r *LedgerDao) GetTransactionByOrderNumber(ctx context.Context, orderNo string) (*ledgermodel.Transaction, error) {
	var t ledgermodel.Transaction
	err := r.DB.WithContext(ctx).
		Where("order_no = ? AND trade_status = ?", orderNo, constant.TradeStatusSuccess).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("paid transaction %s: %w", orderNo, settlement.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get paid transaction %s: %w", orderNo, err)
	}
	return &t, nil
}

// ClaimSync CAS 认领入账：未同步 / FAILED / 租约过期的 PROCESSING -> PROCESSING
func (r *LedgerDao) ClaimSync(ctx context.Context, orderNo string, lease time.Duration) (bool, error) {
	now := time.Now()
	res := r.DB.WithContext(ctx).
		Model(&ledgermodel.Transaction{}).
		Where("order_no = ? AND trade_status = ?", orderNo, constant.TradeStatusSuccess).
		Where(r.DB.Where("sync_status IN ?", []string{constant.SyncStatusUnset, constant.SyncStatusFailed}).
			Or("sync_status = ? AND (sync_attempted_at IS NULL OR sync_attempted_at < ?)",
				constant.SyncStatusProcessing, now.Add(-lease))).
		Updates(map[string]interface{}{
			"sync_status":       constant.SyncStatusProcessing,
			"sync_attempted_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("claim sync %s: %w", orderNo, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// UpdateTransactionSyncStatus 回写同步状态；SUCCESS 写 synced_at 并清空错误，FAILED 写错误信息
func (r *LedgerDao) UpdateTransactionSyncStatus(ctx context.Context, orderNo, status string, fields settlement.SyncFields) error {
	at := fields.At
	if at.IsZero() {
		at = time.Now()
	}
	data := map[string]interface{}{
		"sync_status":       status,
		"sync_attempted_at": at,
	}
	switch status {
	case constant.SyncStatusSuccess:
		data["synced_at"] = at
		data["sync_error"] = ""
	case constant.SyncStatusFailed:
		data["sync_error"] = fields.Error
	}

	q := r.DB.WithContext(ctx).Model(&ledgermodel.Transaction{}).Where("order_no = ?", orderNo)
	if len(fields.From) > 0 {
		q = q.Where("sync_status IN ?", fields.From)
	}
	res := q.Updates(data)
	if res.Error != nil {
		return fmt.Errorf("update sync status %s -> %s: %w", orderNo, status, res.Error)
	}
	if res.RowsAffected == 0 && len(fields.From) == 0 {
		return fmt.Errorf("update sync status %s: %w", orderNo, settlement.ErrNotFound)
	}
	return nil
}

// MarkTradeSuccess 回调确认支付成功，仅 PENDING 订单会被更新，返回是否本次更新
func (r *LedgerDao) MarkTradeSuccess(ctx context.Context, orderNo, tradeNo string, paidAt time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&ledgermodel.Transaction{}).
		Where("order_no = ? AND trade_status = ?", orderNo, constant.TradeStatusPending).
		Updates(map[string]interface{}{
			"trade_status": constant.TradeStatusSuccess,
			"trade_no":     tradeNo,
			"paid_at":      paidAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark trade success %s: %w", orderNo, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListSyncPending 已支付但从未入账或入账中断的订单，供补偿任务扫描；FAILED 订单留给人工或 MQ 重试
func (r *LedgerDao) ListSyncPending(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	var orderNos []string
	err := r.DB.WithContext(ctx).
		Model(&ledgermodel.Transaction{}).
		Where("trade_status = ? AND sync_status IN ?", constant.TradeStatusSuccess,
			[]string{constant.SyncStatusUnset, constant.SyncStatusProcessing}).
		Where("paid_at < ?", olderThan).
		Order("id").
		Limit(limit).
		Pluck("order_no", &orderNos).Error
	if err != nil {
		return nil, fmt.Errorf("list sync pending: %w", err)
	}
	return orderNos, nil
}
