package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"token-pay-api/internal/idgen"
	accountmodel "token-pay-api/internal/model/account"
	"token-pay-api/internal/settlement"
)

// BalanceDao 用户库余额与入账流水
type BalanceDao struct {
	DB *gorm.DB
}

func NewBalanceDao(db *gorm.DB) *BalanceDao {
	if db == nil {
		panic("[FATAL] balance db cannot be nil")
	}
	return &BalanceDao{DB: db}
}

// GetUserBalance 不存在时返回 nil, nil
func (r *BalanceDao) GetUserBalance(ctx context.Context, userID string) (*accountmodel.UserBalance, error) {
	var b accountmodel.UserBalance
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get balance %s: %w", userID, err)
	}
	return &b, nil
}

// CreateUserBalance 首次入账：写流水 + 建余额行，同一事务
func (r *BalanceDao) CreateUserBalance(ctx context.Context, userID string, initial int64, orderNo string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := insertCreditLog(tx, userID, orderNo, initial, 0, initial, now); err != nil {
			return err
		}
		b := accountmodel.UserBalance{
			UserID:       userID,
			TokenBalance: initial,
			CreateTime:   now,
			UpdateTime:   now,
		}
		if err := tx.Create(&b).Error; err != nil {
			if isDuplicateKey(err) {
				// 其他订单先建了余额行，回滚后按更新重试
				return fmt.Errorf("create balance %s: %w", userID, settlement.ErrBalanceConflict)
			}
			return fmt.Errorf("create balance %s: %w", userID, err)
		}
		return nil
	})
}

// UpdateUserBalance 余额 CAS：token_balance 仍为 expected 时才写入
func (r *BalanceDao) UpdateUserBalance(ctx context.Context, userID string, expected, newBalance int64, orderNo string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := insertCreditLog(tx, userID, orderNo, newBalance-expected, expected, newBalance, now); err != nil {
			return err
		}
		res := tx.Model(&accountmodel.UserBalance{}).
			Where("user_id = ? AND token_balance = ?", userID, expected).
			Updates(map[string]interface{}{
				"token_balance": newBalance,
				"update_time":   now,
			})
		if res.Error != nil {
			return fmt.Errorf("update balance %s: %w", userID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("update balance %s expected %d: %w", userID, expected, settlement.ErrBalanceConflict)
		}
		return nil
	})
}

// HasCredit 该订单是否已有入账流水
func (r *BalanceDao) HasCredit(ctx context.Context, orderNo string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&accountmodel.CreditLog{}).Where("order_no = ?", orderNo).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count credit %s: %w", orderNo, err)
	}
	return n > 0, nil
}

// ListCreditLogs 用户最近的入账流水
func (r *BalanceDao) ListCreditLogs(ctx context.Context, userID string, limit int) ([]accountmodel.CreditLog, error) {
	var logs []accountmodel.CreditLog
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("list credit logs %s: %w", userID, err)
	}
	return logs, nil
}

func insertCreditLog(tx *gorm.DB, userID, orderNo string, tokens, oldBalance, balance int64, now time.Time) error {
	entry := accountmodel.CreditLog{
		ID:         idgen.New(),
		OrderNo:    orderNo,
		UserID:     userID,
		Tokens:     tokens,
		OldBalance: oldBalance,
		Balance:    balance,
		CreateTime: now,
	}
	if err := tx.Create(&entry).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("credit log %s: %w", orderNo, settlement.ErrCreditExists)
		}
		return fmt.Errorf("credit log %s: %w", orderNo, err)
	}
	return nil
}
