package dao

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"token-pay-api/internal/constant"
	ledgermodel "token-pay-api/internal/model/ledger"
	"token-pay-api/internal/settlement"
	"token-pay-api/internal/shard"
)

// openDB 每个测试独立的内存库
func openDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard, TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newLedger(t *testing.T) *LedgerDao {
	t.Helper()
	db := openDB(t, "pay")
	require.NoError(t, MigrateLedger(db))
	return NewLedgerDao(db)
}

func newBalance(t *testing.T) *BalanceDao {
	t.Helper()
	db := openDB(t, "user")
	require.NoError(t, MigrateBalance(db))
	return NewBalanceDao(db)
}

func paidTxn(orderNo string) *ledgermodel.Transaction {
	paidAt := time.Now().Add(-time.Hour)
	return &ledgermodel.Transaction{
		OrderNo:     orderNo,
		UserID:      "user-42",
		Name:        "Tokens",
		PayType:     "alipay",
		Money:       decimal.RequireFromString("10.50"),
		TradeStatus: constant.TradeStatusSuccess,
		Param:       ledgermodel.CreditParam{Tokens: 105, UserID: "user-42"}.Encode(),
		PaidAt:      &paidAt,
	}
}

func TestLedgerDao_GetTransactionByOrderNumber(t *testing.T) {
	ctx := context.Background()
	d := newLedger(t)

	pending := paidTxn("o-pending")
	pending.TradeStatus = constant.TradeStatusPending
	require.NoError(t, d.CreateTransaction(ctx, pending))
	require.NoError(t, d.CreateTransaction(ctx, paidTxn("o-paid")))

	got, err := d.GetTransactionByOrderNumber(ctx, "o-paid")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.5").Equal(got.Money))
	assert.Equal(t, constant.SyncStatusUnset, got.SyncStatus)

	_, err = d.GetTransactionByOrderNumber(ctx, "o-pending")
	assert.True(t, errors.Is(err, settlement.ErrNotFound))
	_, err = d.GetTransactionByOrderNumber(ctx, "missing")
	assert.True(t, errors.Is(err, settlement.ErrNotFound))

	row, err := d.GetByOrderNo(ctx, "o-pending")
	require.NoError(t, err)
	assert.Equal(t, constant.TradeStatusPending, row.TradeStatus)
}

func TestLedgerDao_MarkTradeSuccess(t *testing.T) {
	ctx := context.Background()
	d := newLedger(t)
	txn := paidTxn("o-1")
	txn.TradeStatus = constant.TradeStatusPending
	txn.PaidAt = nil
	require.NoError(t, d.CreateTransaction(ctx, txn))

	ok, err := d.MarkTradeSuccess(ctx, "o-1", "T9", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.MarkTradeSuccess(ctx, "o-1", "T10", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := d.GetByOrderNo(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, "T9", got.TradeNo)
	assert.NotNil(t, got.PaidAt)
}

func TestLedgerDao_ClaimSync(t *testing.T) {
	ctx := context.Background()
	d := newLedger(t)
	require.NoError(t, d.CreateTransaction(ctx, paidTxn("o-1")))

	ok, err := d.ClaimSync(ctx, "o-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// 租约内不可重复认领
	ok, err = d.ClaimSync(ctx, "o-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// 租约过期后可重新认领
	require.NoError(t, d.DB.Model(&ledgermodel.Transaction{}).Where("order_no = ?", "o-1").
		Update("sync_attempted_at", time.Now().Add(-2*time.Minute)).Error)
	ok, err = d.ClaimSync(ctx, "o-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, d.UpdateTransactionSyncStatus(ctx, "o-1", constant.SyncStatusSuccess, settlement.SyncFields{}))
	ok, err = d.ClaimSync(ctx, "o-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerDao_ClaimSyncAfterFailure(t *testing.T) {
	ctx := context.Background()
	d := newLedger(t)
	require.NoError(t, d.CreateTransaction(ctx, paidTxn("o-1")))

	require.NoError(t, d.UpdateTransactionSyncStatus(ctx, "o-1", constant.SyncStatusFailed, settlement.SyncFields{Error: "db down"}))
	ok, err := d.ClaimSync(ctx, "o-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedgerDao_UpdateTransactionSyncStatus(t *testing.T) {
	ctx := context.Background()
	d := newLedger(t)
	require.NoError(t, d.CreateTransaction(ctx, paidTxn("o-1")))

	_, err := d.ClaimSync(ctx, "o-1", time.Minute)
	require.NoError(t, err)

	// 非认领者的 FAILED 不覆盖 PROCESSING
	require.NoError(t, d.UpdateTransactionSyncStatus(ctx, "o-1", constant.SyncStatusFailed, settlement.SyncFields{
		Error: "read failed",
		From:  []string{constant.SyncStatusUnset, constant.SyncStatusFailed},
	}))
	got, err := d.GetByOrderNo(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, constant.SyncStatusProcessing, got.SyncStatus)

	require.NoError(t, d.UpdateTransactionSyncStatus(ctx, "o-1", constant.SyncStatusFailed, settlement.SyncFields{
		Error: "BalanceWriteFailed: db down",
		From:  []string{constant.SyncStatusUnset, constant.SyncStatusFailed, constant.SyncStatusProcessing},
	}))
	got, err = d.GetByOrderNo(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, constant.SyncStatusFailed, got.SyncStatus)
	assert.Equal(t, "BalanceWriteFailed: db down", got.SyncError)

	at := time.Now()
	require.NoError(t, d.UpdateTransactionSyncStatus(ctx, "o-1", constant.SyncStatusSuccess, settlement.SyncFields{At: at}))
	got, err = d.GetByOrderNo(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, constant.SyncStatusSuccess, got.SyncStatus)
	assert.Empty(t, got.SyncError)
	require.NotNil(t, got.SyncedAt)

	err = d.UpdateTransactionSyncStatus(ctx, "missing", constant.SyncStatusSuccess, settlement.SyncFields{})
	assert.True(t, errors.Is(err, settlement.ErrNotFound))
}

func TestLedgerDao_ListSyncPending(t *testing.T) {
	ctx := context.Background()
	d := newLedger(t)
	for _, no := range []string{"o-1", "o-2", "o-3", "o-4"} {
		require.NoError(t, d.CreateTransaction(ctx, paidTxn(no)))
	}
	recent := paidTxn("o-recent")
	now := time.Now()
	recent.PaidAt = &now
	require.NoError(t, d.CreateTransaction(ctx, recent))

	_, err := d.ClaimSync(ctx, "o-2", time.Minute)
	require.NoError(t, err)
	require.NoError(t, d.UpdateTransactionSyncStatus(ctx, "o-3", constant.SyncStatusSuccess, settlement.SyncFields{}))
	require.NoError(t, d.UpdateTransactionSyncStatus(ctx, "o-4", constant.SyncStatusFailed, settlement.SyncFields{Error: "x"}))

	got, err := d.ListSyncPending(ctx, time.Now().Add(-time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"o-1", "o-2"}, got)

	got, err = d.ListSyncPending(ctx, time.Now().Add(-time.Minute), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"o-1"}, got)
}

func TestBalanceDao_CreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	d := newBalance(t)

	b, err := d.GetUserBalance(ctx, "user-42")
	require.NoError(t, err)
	assert.Nil(t, b)

	require.NoError(t, d.CreateUserBalance(ctx, "user-42", 20, "o-1"))
	b, err = d.GetUserBalance(ctx, "user-42")
	require.NoError(t, err)
	assert.Equal(t, int64(20), b.TokenBalance)

	require.NoError(t, d.UpdateUserBalance(ctx, "user-42", 20, 50, "o-2"))
	b, err = d.GetUserBalance(ctx, "user-42")
	require.NoError(t, err)
	assert.Equal(t, int64(50), b.TokenBalance)

	has, err := d.HasCredit(ctx, "o-2")
	require.NoError(t, err)
	assert.True(t, has)
	has, err = d.HasCredit(ctx, "o-3")
	require.NoError(t, err)
	assert.False(t, has)

	logs, err := d.ListCreditLogs(ctx, "user-42", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "o-2", logs[0].OrderNo)
	assert.Equal(t, int64(30), logs[0].Tokens)
	assert.Equal(t, int64(20), logs[0].OldBalance)
	assert.Equal(t, int64(50), logs[0].Balance)
}

func TestBalanceDao_UpdateConflictRollsBack(t *testing.T) {
	ctx := context.Background()
	d := newBalance(t)
	require.NoError(t, d.CreateUserBalance(ctx, "user-42", 20, "o-1"))

	err := d.UpdateUserBalance(ctx, "user-42", 10, 40, "o-2")
	assert.True(t, errors.Is(err, settlement.ErrBalanceConflict))

	b, err := d.GetUserBalance(ctx, "user-42")
	require.NoError(t, err)
	assert.Equal(t, int64(20), b.TokenBalance)
	// 流水随事务回滚
	has, err := d.HasCredit(ctx, "o-2")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestBalanceDao_DuplicateCreditIsDetected(t *testing.T) {
	ctx := context.Background()
	d := newBalance(t)
	require.NoError(t, d.CreateUserBalance(ctx, "user-42", 20, "o-1"))

	err := d.UpdateUserBalance(ctx, "user-42", 20, 40, "o-1")
	assert.True(t, errors.Is(err, settlement.ErrCreditExists), "%v", err)
	err = d.CreateUserBalance(ctx, "user-7", 20, "o-1")
	assert.True(t, errors.Is(err, settlement.ErrCreditExists), "%v", err)

	b, err := d.GetUserBalance(ctx, "user-42")
	require.NoError(t, err)
	assert.Equal(t, int64(20), b.TokenBalance)
	b, err = d.GetUserBalance(ctx, "user-7")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestBalanceDao_CreateRaceIsConflict(t *testing.T) {
	ctx := context.Background()
	d := newBalance(t)
	require.NoError(t, d.CreateUserBalance(ctx, "user-42", 20, "o-1"))

	// 另一订单也按首次入账建行
	err := d.CreateUserBalance(ctx, "user-42", 30, "o-2")
	assert.True(t, errors.Is(err, settlement.ErrBalanceConflict), "%v", err)

	has, err := d.HasCredit(ctx, "o-2")
	require.NoError(t, err)
	assert.False(t, has)
	b, err := d.GetUserBalance(ctx, "user-42")
	require.NoError(t, err)
	assert.Equal(t, int64(20), b.TokenBalance)
}

func TestLedgerDao_DuplicateOrderNumber(t *testing.T) {
	ctx := context.Background()
	d := newLedger(t)
	require.NoError(t, d.CreateTransaction(ctx, paidTxn("o-1")))

	err := d.CreateTransaction(ctx, paidTxn("o-1"))
	assert.True(t, errors.Is(err, settlement.ErrDuplicateOrderNo), "%v", err)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, isDuplicateKey(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, isDuplicateKey(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}))
	assert.False(t, isDuplicateKey(errors.New("connection refused")))
}

func TestNotifyLogDao_Insert(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, "notify")
	d := NewNotifyLogDao(db, shard.NewNotifyLogShard(1))
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.Local)

	for i := 0; i < 2; i++ {
		require.NoError(t, d.Insert(ctx, &ledgermodel.NotifyLog{
			OrderNo:   "o-1",
			Params:    `{"money":"10.50"}`,
			Verified:  true,
			Status:    "success",
			CreatedAt: at,
		}))
	}

	var n int64
	require.NoError(t, db.Table("pay_notify_log_202403_p0").Count(&n).Error)
	assert.Equal(t, int64(2), n)
}
